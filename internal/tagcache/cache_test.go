package tagcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/observability"
)

type fakeLister struct {
	calls atomic.Int32
	delay time.Duration
	tags  []string
	err   error
}

func (f *fakeLister) DistinctTags(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.tags, f.err
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(lister TagLister, ttl time.Duration) (*Cache, *clock) {
	clk := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := New(lister, ttl, nil, zerolog.Nop())
	c.now = clk.now
	return c, clk
}

func TestCache_Get(t *testing.T) {
	t.Run("serves from cache within ttl", func(t *testing.T) {
		lister := &fakeLister{tags: []string{"cs.lg", "rl"}}
		c, clk := newTestCache(lister, time.Minute)

		tags, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"cs.lg", "rl"}, tags)

		clk.advance(59 * time.Second)
		_, err = c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), lister.calls.Load())
	})

	t.Run("reloads after expiry", func(t *testing.T) {
		lister := &fakeLister{tags: []string{"a"}}
		c, clk := newTestCache(lister, time.Minute)

		_, err := c.Get(context.Background())
		require.NoError(t, err)

		lister.tags = []string{"a", "b"}
		clk.advance(time.Minute)

		tags, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tags)
		assert.Equal(t, int32(2), lister.calls.Load())
	})

	t.Run("empty vocabulary is not nil", func(t *testing.T) {
		c, _ := newTestCache(&fakeLister{}, time.Minute)
		tags, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, tags)
		assert.Empty(t, tags)
	})

	t.Run("refresh error leaves cache stale", func(t *testing.T) {
		boom := errors.New("db down")
		lister := &fakeLister{err: boom}
		c, _ := newTestCache(lister, time.Minute)

		_, err := c.Get(context.Background())
		assert.ErrorIs(t, err, boom)

		lister.err = nil
		lister.tags = []string{"x"}
		tags, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, tags)
		assert.Equal(t, int32(2), lister.calls.Load())
	})
}

func TestCache_Invalidate(t *testing.T) {
	lister := &fakeLister{tags: []string{"a"}}
	c, _ := newTestCache(lister, time.Hour)

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	c.Invalidate()
	lister.tags = []string{"a", "new tag"}

	tags, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "new tag"}, tags)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	lister := &fakeLister{tags: []string{"a"}, delay: 50 * time.Millisecond}
	c, _ := newTestCache(lister, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tags, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []string{"a"}, tags)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestCache_RecordsRefreshMetric(t *testing.T) {
	metrics := observability.NewMetrics("tagcache_test")
	c := New(&fakeLister{tags: []string{"a"}}, time.Minute, metrics, zerolog.Nop())

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	_, err = c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TagCacheRefreshes))
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(&fakeLister{}, 0, nil, zerolog.Nop())
	assert.Equal(t, DefaultTTL, c.ttl)
}
