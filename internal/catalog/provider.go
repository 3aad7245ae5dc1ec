package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by provider implementations when a named prompt or
// resource does not exist. Distinct from an empty list, which is not an error.
var ErrNotFound = errors.New("catalog: not found")

// Provider is the external catalog fetcher. Implementations fetch on every
// call and cache nothing; all caching lives in the Store. A failed call must
// be reported as an error, never as an empty list, so callers can tell
// "server error" from "nothing available".
type Provider interface {
	// ListResources returns the provider's current resource list.
	ListResources(ctx context.Context) ([]ResourceEntry, error)

	// ListPrompts returns the provider's current prompt list.
	ListPrompts(ctx context.Context) ([]PromptEntry, error)

	// GetPrompt returns the full content of the named prompt as role-tagged
	// message parts. Only called after an explicit user selection.
	GetPrompt(ctx context.Context, name string) ([]PromptMessage, error)
}
