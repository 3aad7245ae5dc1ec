// Package cache provides the TTL cache for fetched prompt content, so
// repeat selections of the same prompt within a session don't refetch.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
)

const (
	// DefaultExpiration is how long fetched prompt content stays valid.
	DefaultExpiration = 5 * time.Minute

	// DefaultCleanupInterval is how often expired entries are swept.
	DefaultCleanupInterval = 10 * time.Minute
)

// PromptCache caches prompt content by prompt name. Implements the
// editor.PromptCache interface.
type PromptCache struct {
	cache *gocache.Cache
}

// NewPromptCache initializes the cache with the default TTL.
func NewPromptCache() *PromptCache {
	return NewPromptCacheWithTTL(DefaultExpiration, DefaultCleanupInterval)
}

// NewPromptCacheWithTTL initializes the cache with a custom TTL.
func NewPromptCacheWithTTL(expiration, cleanup time.Duration) *PromptCache {
	return &PromptCache{cache: gocache.New(expiration, cleanup)}
}

// Get retrieves cached prompt content by name.
func (c *PromptCache) Get(name string) ([]catalog.PromptMessage, bool) {
	value, found := c.cache.Get(name)
	if !found {
		return nil, false
	}
	messages, ok := value.([]catalog.PromptMessage)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "key", name)
		return nil, false
	}
	log.Debug(log.CatCache, "cache hit", "key", name)
	return messages, true
}

// Set stores prompt content under the prompt's name.
func (c *PromptCache) Set(name string, messages []catalog.PromptMessage) {
	c.cache.Set(name, messages, gocache.DefaultExpiration)
}
