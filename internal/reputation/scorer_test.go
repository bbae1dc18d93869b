package reputation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/papersources/semanticscholar"
)

// fakeSearcher answers lookups from a table; names without an entry have no match.
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]string
	errs     map[string][]error
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: map[string][]string{},
		errs:    map[string][]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeSearcher) SearchAuthor(ctx context.Context, name string) (*semanticscholar.AuthorResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls[name]
	f.calls[name]++
	if errs := f.errs[name]; call < len(errs) && errs[call] != nil {
		return nil, errs[call]
	}
	venues, ok := f.results[name]
	if !ok {
		return nil, nil
	}
	papers := make([]semanticscholar.AuthorPaper, len(venues))
	for i, v := range venues {
		papers[i] = semanticscholar.AuthorPaper{Venue: v}
	}
	return &semanticscholar.AuthorResult{Name: name, Papers: papers}, nil
}

func (f *fakeSearcher) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// sleepRecorder replaces real sleeps and records the requested durations.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestScorer(searcher AuthorSearcher, cfg Config) (*Scorer, *sleepRecorder) {
	s := NewScorer(searcher, nil, cfg, nil, zerolog.Nop())
	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, rec
}

func rateLimited() error {
	return domain.NewRateLimitError("semantic_scholar", 0)
}

func TestScorer_Score(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["Ada"] = []string{"NeurIPS 2023", "Proceedings of ICML", "Some Workshop", ""}
	searcher.results["Grace"] = []string{"Conference on Robot Learning"}
	searcher.results["Alan"] = []string{"Nature"}

	s, rec := newTestScorer(searcher, Config{Pace: 1100 * time.Millisecond})

	score := s.Score(context.Background(), []string{"Ada", "Grace", "Ada", "", "  ", "Alan", "Unknown"})

	assert.Equal(t, 3.0, score)
	assert.Equal(t, 1, searcher.callCount("Ada"), "duplicate names are looked up once")
	assert.Equal(t, 0, searcher.callCount(""))

	// one pacing sleep per lookup
	require.Len(t, rec.sleeps, 4)
	for _, d := range rec.sleeps {
		assert.Equal(t, 1100*time.Millisecond, d)
	}
}

func TestScorer_Score_CaseSensitiveDedup(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["ada"] = []string{"ICLR"}
	searcher.results["Ada"] = []string{"ICLR"}

	s, _ := newTestScorer(searcher, Config{})
	assert.Equal(t, 2.0, s.Score(context.Background(), []string{"ada", "Ada"}))
}

func TestScorer_RateLimitBackoff(t *testing.T) {
	t.Run("three 429s contribute zero", func(t *testing.T) {
		searcher := newFakeSearcher()
		searcher.errs["J. Doe"] = []error{rateLimited(), rateLimited(), rateLimited()}
		searcher.results["J. Doe"] = []string{"ICLR"}
		searcher.results["Ada"] = []string{"ICML"}

		s, rec := newTestScorer(searcher, Config{Pace: time.Second, MaxAttempts: 3, BackoffBase: 5 * time.Second})

		score := s.Score(context.Background(), []string{"J. Doe", "Ada"})
		assert.Equal(t, 1.0, score)
		assert.Equal(t, 3, searcher.callCount("J. Doe"))

		var backoffs []time.Duration
		for _, d := range rec.sleeps {
			if d != time.Second {
				backoffs = append(backoffs, d)
			}
		}
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, backoffs)
	})

	t.Run("recovers after a 429", func(t *testing.T) {
		searcher := newFakeSearcher()
		searcher.errs["Ada"] = []error{rateLimited()}
		searcher.results["Ada"] = []string{"ICML", "CVPR"}

		s, _ := newTestScorer(searcher, Config{})
		assert.Equal(t, 2.0, s.Score(context.Background(), []string{"Ada"}))
		assert.Equal(t, 2, searcher.callCount("Ada"))
	})

	t.Run("retry-after longer than backoff wins", func(t *testing.T) {
		searcher := newFakeSearcher()
		searcher.errs["Ada"] = []error{domain.NewRateLimitError("semantic_scholar", time.Minute)}

		s, rec := newTestScorer(searcher, Config{})
		s.Score(context.Background(), []string{"Ada"})
		assert.Contains(t, rec.sleeps, time.Minute)
	})
}

func TestScorer_OtherErrorsGiveUp(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.errs["Ada"] = []error{domain.NewExternalAPIError("semantic_scholar", 500, "boom", nil)}
	searcher.results["Ada"] = []string{"ICLR"}

	s, _ := newTestScorer(searcher, Config{})
	assert.Equal(t, 0.0, s.Score(context.Background(), []string{"Ada"}))
	assert.Equal(t, 1, searcher.callCount("Ada"))
}

func TestScorer_CircuitBreaker(t *testing.T) {
	searcher := newFakeSearcher()
	boom := errors.New("connection refused")
	for _, name := range []string{"a", "b", "c"} {
		searcher.errs[name] = []error{boom}
	}
	searcher.results["d"] = []string{"ICLR"}

	s, _ := newTestScorer(searcher, Config{MaxConcurrent: 1, BreakerThreshold: 2, BreakerCooldown: time.Hour})

	for _, name := range []string{"a", "b"} {
		assert.Equal(t, 0.0, s.Score(context.Background(), []string{name}))
	}
	// circuit is open: lookups short-circuit without calling upstream
	assert.Equal(t, 0.0, s.Score(context.Background(), []string{"d"}))
	assert.Equal(t, 0, searcher.callCount("d"))
}

func TestScorer_SemaphoreBoundsConcurrency(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.hold = 20 * time.Millisecond
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, n := range names {
		searcher.results[n] = []string{"ICLR"}
	}

	s, _ := newTestScorer(searcher, Config{MaxConcurrent: 2})
	scores := s.ScoreMany(context.Background(), [][]string{names[:4], names[4:], {}})

	assert.Equal(t, []float64{4, 4, 0}, scores)
	assert.LessOrEqual(t, searcher.peak.Load(), int32(2))
}

func TestScorer_Canceled(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["Ada"] = []string{"ICLR"}

	s, _ := newTestScorer(searcher, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0.0, s.Score(ctx, []string{"Ada"}))
	assert.Equal(t, 0, searcher.callCount("Ada"))
}

func TestScorer_NilSearcher(t *testing.T) {
	s := NewScorer(nil, nil, Config{}, nil, zerolog.Nop())
	assert.Equal(t, 0.0, s.Score(context.Background(), []string{"Ada"}))

	var nilScorer *Scorer
	assert.Equal(t, 0.0, nilScorer.Score(context.Background(), []string{"Ada"}))
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "B"}, uniqueNames([]string{"b", "a", "", "b", " ", "B"}))
}
