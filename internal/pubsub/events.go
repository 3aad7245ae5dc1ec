// Package pubsub provides a generic publish/subscribe event system used to
// fan catalog updates out to open composers and other read-side components.
package pubsub

import (
	"context"
	"time"
)

// EventType names the kind of event being published.
type EventType string

const (
	// CatalogMergedEvent fires after entries are merged into the catalog
	// store. Decoration recomputation keys off this.
	CatalogMergedEvent EventType = "catalog.merged"

	// CatalogReloadedEvent fires when a provider's backing data changed out
	// from under the session (e.g. file provider hot reload).
	CatalogReloadedEvent EventType = "catalog.reloaded"

	// LogLineEvent carries a formatted log line to in-app log viewers.
	LogLineEvent EventType = "log.line"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
