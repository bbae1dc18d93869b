// Package reputation scores papers by their authors' top-tier publication record.
package reputation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources/semanticscholar"
)

// Lookup outcomes recorded in metrics.
const (
	OutcomeScored      = "scored"
	OutcomeNoMatch     = "no_match"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeCanceled    = "canceled"
)

// AuthorSearcher finds the best matching author profile for a name.
// A nil result with a nil error means no match.
type AuthorSearcher interface {
	SearchAuthor(ctx context.Context, name string) (*semanticscholar.AuthorResult, error)
}

// Config holds scorer settings.
type Config struct {
	// MaxConcurrent bounds in-flight author lookups across the process.
	MaxConcurrent int
	// Pace is slept before every lookup attempt.
	Pace time.Duration
	// MaxAttempts bounds attempts on rate-limited lookups.
	MaxAttempts int
	// BackoffBase is the first rate-limit backoff; it doubles per attempt.
	BackoffBase time.Duration
	// BreakerThreshold opens the circuit after this many consecutive failures.
	BreakerThreshold uint32
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 20
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = time.Minute
	}
}

// Scorer computes paper reputation scores. It is safe for concurrent use;
// every lookup from every caller shares one semaphore.
type Scorer struct {
	searcher  AuthorSearcher
	catalogue *Catalogue
	cfg       Config
	sem       *semaphore.Weighted
	breaker   *gobreaker.CircuitBreaker[*semanticscholar.AuthorResult]
	metrics   *observability.Metrics
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewScorer creates a scorer. A nil searcher scores every paper 0.
func NewScorer(searcher AuthorSearcher, catalogue *Catalogue, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Scorer {
	cfg.applyDefaults()
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	logger = logger.With().Str("component", "reputation_scorer").Logger()

	breaker := gobreaker.NewCircuitBreaker[*semanticscholar.AuthorResult](gobreaker.Settings{
		Name:    "semantic_scholar",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Scorer{
		searcher:  searcher,
		catalogue: catalogue,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		breaker:   breaker,
		metrics:   metrics,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Score returns the summed top-tier publication count of the paper's unique
// authors. Lookups run concurrently and the call returns once all finish.
// Failures contribute 0; Score never returns an error.
func (s *Scorer) Score(ctx context.Context, authors []string) float64 {
	if s == nil || s.searcher == nil {
		return 0
	}

	names := uniqueNames(authors)
	var total atomic.Int64
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			total.Add(int64(s.authorScore(ctx, name)))
			return nil
		})
	}
	_ = g.Wait()

	score := float64(total.Load())
	s.metrics.RecordReputationScore(score)
	return score
}

// ScoreMany scores several papers concurrently. The result is index-aligned
// with authorLists.
func (s *Scorer) ScoreMany(ctx context.Context, authorLists [][]string) []float64 {
	scores := make([]float64, len(authorLists))
	var g errgroup.Group
	for i, authors := range authorLists {
		g.Go(func() error {
			scores[i] = s.Score(ctx, authors)
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

// authorScore performs one gated lookup with rate-limit retries.
func (s *Scorer) authorScore(ctx context.Context, name string) int {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.metrics.RecordReputationLookup(OutcomeCanceled)
		return 0
	}
	defer s.sem.Release(1)

	logger := s.logger.With().Str("author", name).Logger()
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if err := s.sleep(ctx, s.cfg.Pace); err != nil {
			s.metrics.RecordReputationLookup(OutcomeCanceled)
			return 0
		}

		author, err := s.breaker.Execute(func() (*semanticscholar.AuthorResult, error) {
			return s.searcher.SearchAuthor(ctx, name)
		})
		if err == nil {
			if author == nil {
				s.metrics.RecordReputationLookup(OutcomeNoMatch)
				return 0
			}
			count := s.catalogue.Count(author.Venues())
			s.metrics.RecordReputationLookup(OutcomeScored)
			if count > 0 {
				logger.Debug().Int("top_tier_papers", count).Msg("author scored")
			}
			return count
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.metrics.RecordReputationLookup(OutcomeCircuitOpen)
			return 0
		}

		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			s.metrics.RecordReputationLookup(OutcomeError)
			logger.Warn().Err(err).Msg("author lookup failed")
			return 0
		}

		// Backoff is slept after every rate-limited attempt, including the
		// last, while the permit is held.
		backoff := s.cfg.BackoffBase << uint(attempt)
		if rl.RetryAfter > backoff {
			backoff = rl.RetryAfter
		}
		logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("author lookup rate limited")
		if err := s.sleep(ctx, backoff); err != nil {
			s.metrics.RecordReputationLookup(OutcomeCanceled)
			return 0
		}
	}

	s.metrics.RecordReputationLookup(OutcomeRateLimited)
	return 0
}

// uniqueNames drops blanks and exact duplicates, keeping first-seen order.
func uniqueNames(authors []string) []string {
	seen := make(map[string]struct{}, len(authors))
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		if strings.TrimSpace(a) == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
