package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/config"
	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/ingestion"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
	"github.com/helixir/paper-feed-service/internal/papersources/arxiv"
	"github.com/helixir/paper-feed-service/internal/papersources/openreview"
	"github.com/helixir/paper-feed-service/internal/pruner"
	"github.com/helixir/paper-feed-service/internal/scheduler"
)

// openReviewGroupJob is the scheduler entry that walks every OpenReview venue.
const openReviewGroupJob = "openreview_fetchers"

// jobRunner executes a single fetcher run.
type jobRunner interface {
	Run(ctx context.Context, f papersources.Fetcher) (*ingestion.Report, error)
}

// registerFetchers builds a fetcher for every enabled source and venue.
func registerFetchers(registry *papersources.Registry, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) {
	capture := papersources.NewPageCapture(cfg.Ingestion.DebugCaptureDir, cfg.Ingestion.MinParseRate, logger)

	if ax := cfg.PaperSources.ArXiv; ax.Enabled {
		client := arxiv.New(arxiv.Config{
			BaseURL:         ax.BaseURL,
			JobName:         ax.JobName,
			Categories:      ax.Categories,
			Timeout:         ax.Timeout,
			PageSize:        ax.PageSize,
			MaxPages:        ax.MaxPages,
			PageDelay:       ax.PageDelay,
			MaxAttempts:     ax.MaxAttempts,
			RetryBaseDelay:  ax.RetryBaseDelay,
			TargetFetchSize: ax.TargetFetchSize,
		}, metrics)
		registry.Register(arxiv.NewFetcher(client, capture, logger))
		logger.Info().Strs("categories", ax.Categories).Msg("registered arXiv fetcher")
	}

	if orc := cfg.PaperSources.OpenReview; orc.Enabled {
		client := openreview.New(openreview.Config{
			BaseURL:        orc.BaseURL,
			Timeout:        orc.Timeout,
			PageSize:       orc.PageSize,
			MaxPages:       orc.MaxPages,
			PageDelay:      orc.PageDelay,
			MaxAttempts:    orc.MaxAttempts,
			RetryBaseDelay: orc.RetryBaseDelay,
			IncludeReplies: orc.IncludeReplies,
			Username:       orc.Username,
			Password:       orc.Password,
		}, metrics)

		venues := openreview.ExpandVenues(baseVenues(orc.Venues), time.Now().UTC())
		for _, venue := range venues {
			registry.Register(openreview.NewFetcher(client, venue, capture, logger))
		}
		logger.Info().Int("venues", len(venues)).Msg("registered OpenReview fetchers")
	}
}

// baseVenues converts configured venues, falling back to the built-in list.
func baseVenues(configured []config.VenueConfig) []openreview.BaseVenue {
	if len(configured) == 0 {
		return openreview.DefaultBaseVenues()
	}
	bases := make([]openreview.BaseVenue, 0, len(configured))
	for _, v := range configured {
		venueType := openreview.VenueConference
		if v.Type == string(openreview.VenueJournal) {
			venueType = openreview.VenueJournal
		}
		bases = append(bases, openreview.BaseVenue{
			NamePrefix:     v.NamePrefix,
			DisplayName:    v.DisplayName,
			VenueIDPattern: v.VenueIDPattern,
			StartYear:      v.StartYear,
			Type:           venueType,
			Strategy:       domain.SyncStrategy(v.SyncStrategy),
		})
	}
	return bases
}

// registerJobs adds the fetch and retention jobs to the scheduler.
func registerJobs(sched *scheduler.Scheduler, registry *papersources.Registry, runner jobRunner, prune *pruner.Pruner, cfg *config.Config) error {
	for _, f := range registry.BySource(domain.SourceArxiv) {
		err := sched.Add(scheduler.Job{
			Name:     f.JobName(),
			Schedule: cfg.Scheduler.ArxivSchedule,
			Run: func(ctx context.Context) error {
				_, err := runner.Run(ctx, f)
				return err
			},
		})
		if err != nil {
			return err
		}
	}

	if venues := registry.BySource(domain.SourceOpenReview); len(venues) > 0 {
		err := sched.Add(scheduler.Job{
			Name:     openReviewGroupJob,
			Schedule: cfg.Scheduler.OpenReviewSchedule,
			Run: func(ctx context.Context) error {
				return runSequentially(ctx, runner, venues)
			},
		})
		if err != nil {
			return err
		}
	}

	return sched.Add(scheduler.Job{
		Name:     pruner.JobName,
		Schedule: cfg.Scheduler.PruneSchedule,
		Run: func(ctx context.Context) error {
			_, err := prune.Run(ctx)
			return err
		},
	})
}

// runSequentially runs each fetcher in turn. One venue failing does not
// stop the others; all failures are returned together.
func runSequentially(ctx context.Context, runner jobRunner, fetchers []papersources.Fetcher) error {
	var errs []error
	for _, f := range fetchers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := runner.Run(ctx, f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.JobName(), err))
		}
	}
	return errors.Join(errs...)
}
