// Package pruner removes arXiv papers that have outlived their shelf life.
package pruner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
)

// DefaultShelfLifeMonths is the retention window for arXiv papers.
const DefaultShelfLifeMonths = 6

// JobName identifies the pruner in the scheduler and in logs.
const JobName = "arxiv_retention_pruner"

// PaperDeleter removes papers of a source published before a cutoff.
type PaperDeleter interface {
	DeleteOlderThan(ctx context.Context, source domain.Source, cutoff time.Time) (int64, error)
}

// Pruner deletes arXiv papers older than the shelf life. OpenReview papers
// are never pruned.
type Pruner struct {
	papers          PaperDeleter
	shelfLifeMonths int
	metrics         *observability.Metrics
	logger          zerolog.Logger
	now             func() time.Time
}

// New creates a pruner. A non-positive shelf life uses DefaultShelfLifeMonths.
func New(papers PaperDeleter, shelfLifeMonths int, metrics *observability.Metrics, logger zerolog.Logger) *Pruner {
	if shelfLifeMonths <= 0 {
		shelfLifeMonths = DefaultShelfLifeMonths
	}
	return &Pruner{
		papers:          papers,
		shelfLifeMonths: shelfLifeMonths,
		metrics:         metrics,
		logger:          logger.With().Str("component", "pruner").Logger(),
		now:             time.Now,
	}
}

// Cutoff returns the publication date before which papers are removed.
func (p *Pruner) Cutoff() time.Time {
	now := p.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, -p.shelfLifeMonths, 0)
}

// Run deletes expired arXiv papers and returns how many were removed.
func (p *Pruner) Run(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()

	deleted, err := p.papers.DeleteOlderThan(ctx, domain.SourceArxiv, cutoff)
	if err != nil {
		p.logger.Error().Err(err).Time("cutoff", cutoff).Msg("retention prune failed")
		return 0, fmt.Errorf("failed to prune arxiv papers: %w", err)
	}

	p.metrics.RecordPapersPruned(deleted)
	p.logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Int("shelf_life_months", p.shelfLifeMonths).
		Msg("retention prune completed")

	return deleted, nil
}
