// Package ingestion runs fetch jobs end to end: fetch, dedup, enrich,
// commit, and checkpoint.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/dedup"
	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

// DefaultCommitBatchSize is the number of papers committed per transaction.
const DefaultCommitBatchSize = 20

// Run outcomes recorded in metrics.
const (
	OutcomeSuccess           = "success"
	OutcomeSkipped           = "skipped"
	OutcomeCheckpointMissing = "checkpoint_missing"
	OutcomeFailed            = "failed"
)

// PaperStore is the storage surface the runner writes to.
type PaperStore interface {
	dedup.IdentityLookup
	InsertBatch(ctx context.Context, papers []*domain.Paper) ([]*domain.Paper, error)
}

// CheckpointStore persists job markers.
type CheckpointStore interface {
	Get(ctx context.Context, jobName string) (*domain.JobCheckpoint, error)
	Upsert(ctx context.Context, jobName, marker string) error
}

// JobLocker guards a job name across worker replicas.
type JobLocker interface {
	TryJobLock(ctx context.Context, jobName string) (release func(), ok bool, err error)
}

// ReputationScorer scores the author lists of candidate papers.
type ReputationScorer interface {
	ScoreMany(ctx context.Context, authorLists [][]string) []float64
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...*domain.Event) error
}

// Config holds runner settings.
type Config struct {
	CommitBatchSize int
	DedupBatchSize  int
}

// Report summarizes one job run.
type Report struct {
	JobName       string
	Source        domain.Source
	Skipped       bool
	Pages         int
	Fetched       int
	Dropped       int
	Duplicates    int
	Invalid       int
	Inserted      int
	FailedBatches int
	Truncated     bool
	NewMarker     string
	Duration      time.Duration
}

// Runner executes fetch jobs.
type Runner struct {
	papers      PaperStore
	checkpoints CheckpointStore
	locker      JobLocker
	scorer      ReputationScorer
	publisher   EventPublisher
	dedup       *dedup.Checker
	cfg         Config
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// Deps bundles the runner's collaborators. Locker, Scorer and Publisher
// are optional.
type Deps struct {
	Papers      PaperStore
	Checkpoints CheckpointStore
	Locker      JobLocker
	Scorer      ReputationScorer
	Publisher   EventPublisher
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

// NewRunner creates a job runner.
func NewRunner(deps Deps, cfg Config) *Runner {
	if cfg.CommitBatchSize <= 0 {
		cfg.CommitBatchSize = DefaultCommitBatchSize
	}
	return &Runner{
		papers:      deps.Papers,
		checkpoints: deps.Checkpoints,
		locker:      deps.Locker,
		scorer:      deps.Scorer,
		publisher:   deps.Publisher,
		dedup:       dedup.NewChecker(deps.Papers, dedup.CheckerConfig{BatchSize: cfg.DedupBatchSize}),
		cfg:         cfg,
		metrics:     deps.Metrics,
		logger:      deps.Logger.With().Str("component", "ingestion_runner").Logger(),
	}
}

// Run executes one fetch job.
//
// A job whose lock is held elsewhere is skipped. An incremental run that
// cannot find its marker returns the *domain.CheckpointMissingError without
// inserting anything or touching the checkpoint. Failed commit batches are
// counted and do not stop the run; the checkpoint still advances.
func (r *Runner) Run(ctx context.Context, f papersources.Fetcher) (*Report, error) {
	start := time.Now()
	job := f.JobName()
	source := f.Source()
	ctx = observability.WithJobRun(ctx, job, uuid.NewString())
	logger := observability.LoggerFromContext(ctx, r.logger).With().Str("source", string(source)).Logger()
	report := &Report{JobName: job, Source: source}

	if r.locker != nil {
		release, ok, err := r.locker.TryJobLock(ctx, job)
		if err != nil {
			return r.fail(report, start, fmt.Errorf("acquire job lock: %w", err))
		}
		if !ok {
			logger.Info().Msg("job already running elsewhere, skipping")
			report.Skipped = true
			r.metrics.RecordFetchRun(job, string(source), OutcomeSkipped, time.Since(start).Seconds())
			return report, nil
		}
		defer release()
	}

	marker, err := r.loadMarker(ctx, job)
	if err != nil {
		return r.fail(report, start, err)
	}

	result, err := f.FetchNew(ctx, marker)
	if err != nil {
		var missing *domain.CheckpointMissingError
		if errors.As(err, &missing) {
			logger.Error().Err(err).
				Str("marker", missing.Marker).
				Int("pages", missing.Pages).
				Msg("checkpoint marker not found upstream, aborting run")
			r.metrics.RecordCheckpointAbort(job)
			r.metrics.RecordFetchRun(job, string(source), OutcomeCheckpointMissing, time.Since(start).Seconds())
			r.publish(ctx, logger, domain.EventTypeCheckpointStale, job, domain.CheckpointStalePayload{
				JobName: job,
				Marker:  missing.Marker,
				Pages:   missing.Pages,
			})
			report.Duration = time.Since(start)
			return report, err
		}
		return r.fail(report, start, fmt.Errorf("fetch: %w", err))
	}

	report.Pages = result.Pages
	report.Fetched = len(result.Papers)
	report.Dropped = result.Dropped
	report.Truncated = result.Truncated
	r.metrics.RecordPapersFetched(string(source), report.Fetched)
	r.metrics.RecordPapersDropped(string(source), "missing_identity_or_title", report.Dropped)

	checked, err := r.dedup.Check(ctx, source, result.Papers)
	if err != nil {
		return r.fail(report, start, fmt.Errorf("dedup: %w", err))
	}
	report.Duplicates = checked.Duplicates
	r.metrics.RecordPapersDuplicate(string(source), report.Duplicates)

	papers := r.enrich(ctx, logger, checked.New, report)
	r.commit(ctx, logger, job, papers, report)

	if result.NewMarker != nil {
		if err := r.checkpoints.Upsert(ctx, job, *result.NewMarker); err != nil {
			return r.fail(report, start, fmt.Errorf("write checkpoint: %w", err))
		}
		report.NewMarker = *result.NewMarker
	}

	report.Duration = time.Since(start)
	r.metrics.RecordFetchRun(job, string(source), OutcomeSuccess, report.Duration.Seconds())
	r.publish(ctx, logger, domain.EventTypeFetchCompleted, job, domain.FetchCompletedPayload{
		JobName:    job,
		Fetched:    report.Fetched,
		Inserted:   report.Inserted,
		Duplicates: report.Duplicates,
		Failed:     report.FailedBatches,
		Marker:     report.NewMarker,
		Duration:   report.Duration,
	})

	logger.Info().
		Int("pages", report.Pages).
		Int("fetched", report.Fetched).
		Int("dropped", report.Dropped).
		Int("duplicates", report.Duplicates).
		Int("inserted", report.Inserted).
		Int("failed_batches", report.FailedBatches).
		Bool("truncated", report.Truncated).
		Str("marker", report.NewMarker).
		Dur("duration", report.Duration).
		Msg("fetch job completed")

	return report, nil
}

func (r *Runner) loadMarker(ctx context.Context, job string) (*string, error) {
	cp, err := r.checkpoints.Get(ctx, job)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	marker := cp.LastProcessedMarker
	return &marker, nil
}

// enrich scores authors and builds validated papers from the new candidates.
func (r *Runner) enrich(ctx context.Context, logger zerolog.Logger, inputs []domain.PaperInput, report *Report) []*domain.Paper {
	if len(inputs) == 0 {
		return nil
	}

	if r.scorer != nil {
		authorLists := make([][]string, len(inputs))
		for i, in := range inputs {
			authorLists[i] = in.Authors
		}
		scores := r.scorer.ScoreMany(ctx, authorLists)
		for i := range inputs {
			if i < len(scores) {
				inputs[i].ReputationScore = scores[i]
			}
		}
	}

	papers := make([]*domain.Paper, 0, len(inputs))
	for _, in := range inputs {
		p, err := domain.NewPaper(in)
		if err != nil {
			logger.Warn().Err(err).Str("source_id", in.SourceID).Msg("dropping invalid paper")
			report.Invalid++
			continue
		}
		papers = append(papers, p)
	}
	r.metrics.RecordPapersDropped(string(report.Source), "invalid", report.Invalid)
	return papers
}

// commit inserts papers in fixed-size batches; each batch is its own
// transaction and a failed batch does not affect the others.
func (r *Runner) commit(ctx context.Context, logger zerolog.Logger, job string, papers []*domain.Paper, report *Report) {
	for start := 0; start < len(papers); start += r.cfg.CommitBatchSize {
		end := min(start+r.cfg.CommitBatchSize, len(papers))

		inserted, err := r.papers.InsertBatch(ctx, papers[start:end])
		if err != nil {
			report.FailedBatches++
			r.metrics.RecordBatchFailed(string(report.Source))
			logger.Error().Err(err).
				Int("batch_start", start).
				Int("batch_size", end-start).
				Msg("commit batch rolled back")
			continue
		}

		report.Inserted += len(inserted)
		r.metrics.RecordPapersInserted(string(report.Source), len(inserted))
		r.publishIngested(ctx, logger, job, inserted)
	}
}

func (r *Runner) publishIngested(ctx context.Context, logger zerolog.Logger, job string, papers []*domain.Paper) {
	if r.publisher == nil || len(papers) == 0 {
		return
	}
	events := make([]*domain.Event, 0, len(papers))
	for _, p := range papers {
		ev, err := domain.NewEvent(domain.EventTypePaperIngested, fmt.Sprintf("%s:%s", p.Source, p.SourceID), domain.PaperIngestedPayload{
			Source:          p.Source,
			SourceID:        p.SourceID,
			Title:           p.Title,
			PaperURL:        p.PaperURL,
			VenueOrCategory: p.VenueOrCategory,
			PublishedOn:     p.PublishedOn,
			ReputationScore: p.ReputationScore,
			JobName:         job,
		})
		if err != nil {
			logger.Warn().Err(err).Str("source_id", p.SourceID).Msg("failed to build ingested event")
			continue
		}
		events = append(events, ev)
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		logger.Warn().Err(err).Int("events", len(events)).Msg("failed to publish ingested events")
	}
}

func (r *Runner) publish(ctx context.Context, logger zerolog.Logger, eventType, job string, payload any) {
	if r.publisher == nil {
		return
	}
	ev, err := domain.NewEvent(eventType, job, payload)
	if err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func (r *Runner) fail(report *Report, start time.Time, err error) (*Report, error) {
	report.Duration = time.Since(start)
	r.metrics.RecordFetchRun(report.JobName, string(report.Source), OutcomeFailed, report.Duration.Seconds())
	r.logger.Error().Err(err).Str("job_name", report.JobName).Msg("fetch job failed")
	return report, err
}
