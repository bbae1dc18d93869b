package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/repository"
)

// Default pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// WindowLister loads the filtered candidate window.
type WindowLister interface {
	ListRankingWindow(ctx context.Context, filter repository.WindowFilter) ([]*domain.Paper, error)
}

// Filters narrows the candidate window before scoring.
type Filters struct {
	Tags     []string
	Venue    string
	Year     int
	Category string
}

// RankRequest is one page of a ranked feed.
type RankRequest struct {
	Source  domain.Source
	Filters Filters
	Limit   int
	Offset  int
}

// Config holds engine settings.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	// MaxWindow caps the candidate window loaded per request; 0 loads all.
	MaxWindow uint64
}

// Engine ranks the filtered window of one source.
type Engine struct {
	papers  WindowLister
	cfg     Config
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine creates a ranking engine.
func NewEngine(papers WindowLister, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	return &Engine{
		papers:  papers,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With().Str("component", "ranking_engine").Logger(),
		now:     time.Now,
	}
}

// Rank scores the whole filtered window and returns the requested page.
// Normalization always spans the full window, so a page's scores do not
// depend on Limit or Offset.
func (e *Engine) Rank(ctx context.Context, req RankRequest) ([]domain.RankedResult, error) {
	limit, err := e.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}

	filter := repository.WindowFilter{
		Source:   req.Source,
		Tags:     normalizeTags(req.Filters.Tags),
		Venue:    req.Filters.Venue,
		Year:     req.Filters.Year,
		Category: req.Filters.Category,
		MaxRows:  e.cfg.MaxWindow,
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	window, err := e.papers.ListRankingWindow(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking window: %w", err)
	}

	ranked := Score(window, e.now())
	e.metrics.RecordRanking(string(req.Source), len(window), time.Since(start).Seconds())
	e.logger.Debug().
		Str("source", string(req.Source)).
		Int("window", len(window)).
		Int("limit", limit).
		Int("offset", req.Offset).
		Msg("ranked feed")

	if req.Offset >= len(ranked) {
		return []domain.RankedResult{}, nil
	}
	end := req.Offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[req.Offset:end], nil
}

func (e *Engine) resolveLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return e.cfg.DefaultLimit, nil
	case limit < 0:
		return 0, domain.NewValidationError("limit", "must be positive")
	case limit > e.cfg.MaxLimit:
		return 0, domain.NewValidationError("limit", fmt.Sprintf("must be at most %d", e.cfg.MaxLimit))
	default:
		return limit, nil
	}
}

// normalizeTags applies tag normalization and drops empties and duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = domain.NormalizeTag(t)
		if t == "" || domain.ContainsTag(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
