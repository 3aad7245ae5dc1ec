package editor

import (
	"sync"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/pubsub"
)

// CatalogUpdate is the payload published after a session merge, carrying how
// many entries of each namespace arrived. Subscribers recompute decorations
// against the new snapshot.
type CatalogUpdate struct {
	Resources int
	Prompts   int
}

// Session owns the catalog store for one editing session. The store itself
// is an immutable snapshot; the session is the single mutable slot pointing
// at the current one. Merges swap the slot atomically and publish a
// CatalogUpdate, so every component reads either the old snapshot or the
// new one, never a half-merged state.
type Session struct {
	mu     sync.Mutex
	store  *catalog.Store
	broker *pubsub.Broker[CatalogUpdate]
}

// NewSession starts a session with an empty catalog.
func NewSession() *Session {
	return &Session{
		store:  catalog.NewStore(),
		broker: pubsub.NewBroker[CatalogUpdate](),
	}
}

// Store returns the current catalog snapshot.
func (s *Session) Store() *catalog.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Merge folds fetched entries into the catalog and returns the new snapshot.
// Merges arriving concurrently apply one at a time, in arrival order;
// last write wins per key, which is safe because entries are idempotent
// snapshots rather than deltas.
func (s *Session) Merge(resources []catalog.ResourceEntry, prompts []catalog.PromptEntry) *catalog.Store {
	s.mu.Lock()
	s.store = s.store.MergeResources(resources).MergePrompts(prompts)
	next := s.store
	s.mu.Unlock()

	if len(resources) > 0 || len(prompts) > 0 {
		log.Debug(log.CatCatalog, "catalog merged",
			"resources", len(resources), "prompts", len(prompts))
		s.broker.Publish(pubsub.CatalogMergedEvent, CatalogUpdate{
			Resources: len(resources),
			Prompts:   len(prompts),
		})
	}
	return next
}

// Broker exposes the catalog update feed for subscribers.
func (s *Session) Broker() *pubsub.Broker[CatalogUpdate] {
	return s.broker
}

// Close shuts down the update feed.
func (s *Session) Close() {
	s.broker.Close()
}
