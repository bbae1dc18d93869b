// Package scheduler triggers fetch and maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. A job never overlaps itself: a
// trigger that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	jobs    map[string]cron.Job
	entries map[string]cron.EntryID
}

// New creates a Scheduler in the given timezone.
func New(timezone string, logger zerolog.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)

	return &Scheduler{
		cron:     c,
		location: loc,
		logger:   logger,
		ctx:      context.Background(),
		jobs:     make(map[string]cron.Job),
		entries:  make(map[string]cron.EntryID),
	}, nil
}

// Add registers a job. Job names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger.With().Str("job_name", job.Name).Logger()})).
		Then(cron.FuncJob(func() { s.execute(job) }))

	id, err := s.cron.AddJob(job.Schedule, wrapped)
	if err != nil {
		return fmt.Errorf("adding cron entry for %s: %w", job.Name, err)
	}

	s.jobs[job.Name] = wrapped
	s.entries[job.Name] = id
	s.logger.Info().
		Str("job_name", job.Name).
		Str("schedule", job.Schedule).
		Str("timezone", s.location.String()).
		Msg("job scheduled")
	return nil
}

// Start begins triggering jobs. Job runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// RunNow triggers a job immediately, subject to the same overlap guard as
// scheduled runs. It blocks until the run finishes or is skipped.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	job.Run()
	return nil
}

// RunAllNow triggers every registered job concurrently and waits for them.
func (s *Scheduler) RunAllNow() {
	s.mu.Lock()
	jobs := make([]cron.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j cron.Job) {
			defer wg.Done()
			j.Run()
		}(j)
	}
	wg.Wait()
}

// Next returns the next scheduled time of a job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Stop halts triggering and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	logger := s.logger.With().Str("job_name", job.Name).Logger()
	logger.Debug().Msg("job started")

	if err := job.Run(ctx); err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		return
	}
	logger.Debug().Dur("duration", time.Since(start)).Msg("job finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
