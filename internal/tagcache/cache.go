// Package tagcache holds the process-wide tag vocabulary.
package tagcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/observability"
)

// DefaultTTL is how long a loaded vocabulary stays fresh.
const DefaultTTL = 600 * time.Second

// TagLister loads the distinct tag vocabulary from storage.
type TagLister interface {
	DistinctTags(ctx context.Context) ([]string, error)
}

// Cache serves the tag vocabulary, reloading it at most once per TTL.
// Concurrent callers that find the cache stale wait for a single refresh.
type Cache struct {
	source  TagLister
	ttl     time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	tags      []string
	expiresAt time.Time
}

// New creates a tag cache. A non-positive ttl uses DefaultTTL.
func New(source TagLister, ttl time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With().Str("component", "tag_cache").Logger(),
		now:     time.Now,
	}
}

// Get returns the cached vocabulary, refreshing it when expired.
// A failed refresh returns the error and leaves the cache stale.
func (c *Cache) Get(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	if c.fresh() {
		tags := c.tags
		c.mu.RUnlock()
		return tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the write lock.
	if c.fresh() {
		return c.tags, nil
	}

	tags, err := c.source.DistinctTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh tag cache: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}

	c.tags = tags
	c.expiresAt = c.now().Add(c.ttl)
	c.metrics.RecordTagCacheRefresh()
	c.logger.Debug().Int("tags", len(tags)).Time("expires_at", c.expiresAt).Msg("tag cache refreshed")

	return tags, nil
}

// Invalidate forces the next Get to reload from storage.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) fresh() bool {
	return !c.expiresAt.IsZero() && c.now().Before(c.expiresAt)
}
