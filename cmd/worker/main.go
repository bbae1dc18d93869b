// Package main provides the entry point for the paper feed fetch worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/config"
	"github.com/helixir/paper-feed-service/internal/database"
	"github.com/helixir/paper-feed-service/internal/ingestion"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/outbox"
	"github.com/helixir/paper-feed-service/internal/papersources"
	"github.com/helixir/paper-feed-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-feed-service/internal/pruner"
	"github.com/helixir/paper-feed-service/internal/repository"
	"github.com/helixir/paper-feed-service/internal/reputation"
	"github.com/helixir/paper-feed-service/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "Run every job once and exit")
	job := flag.String("job", "", "Run a single job by name and exit")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("paper-feed-service worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		if err := database.MigrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create repositories.
	paperRepo := repository.NewPgPaperRepository(db)
	checkpointRepo := repository.NewPgCheckpointRepository(db)

	// Event publisher.
	var publisher interface {
		ingestion.EventPublisher
		Close() error
	} = outbox.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = outbox.NewKafkaPublisher(outbox.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, metrics, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher created")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	runner := ingestion.NewRunner(ingestion.Deps{
		Papers:      paperRepo,
		Checkpoints: checkpointRepo,
		Locker:      db,
		Scorer:      newScorer(cfg, metrics, logger),
		Publisher:   publisher,
		Metrics:     metrics,
		Logger:      logger,
	}, ingestion.Config{
		CommitBatchSize: cfg.Ingestion.CommitBatchSize,
		DedupBatchSize:  cfg.Ingestion.DedupBatchSize,
	})

	registry := papersources.NewRegistry()
	registerFetchers(registry, cfg, metrics, logger)
	prune := pruner.New(paperRepo, cfg.Pruner.ShelfLifeMonths, metrics, logger)

	sched, err := scheduler.New(cfg.Scheduler.Timezone, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if err := registerJobs(sched, registry, runner, prune, cfg); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	// One-shot modes run in the foreground and exit.
	switch {
	case *job != "":
		sched.Start(ctx)
		defer sched.Stop()
		logger.Info().Str("job_name", *job).Msg("running single job")
		return sched.RunNow(*job)
	case *once:
		sched.Start(ctx)
		defer sched.Stop()
		logger.Info().Msg("running every job once")
		sched.RunAllNow()
		return nil
	}

	// Expose worker metrics on the metrics port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 1)
	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	sched.Start(ctx)
	if cfg.Scheduler.RunOnStart {
		go sched.RunAllNow()
	}
	logger.Info().Int("fetchers", registry.Len()).Msg("paper-feed-service worker is ready")

	// Wait for shutdown signal or server error.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("worker error")
	}

	// Graceful shutdown: wait for in-flight jobs, bounded by the shutdown timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	select {
	case <-sched.Stop().Done():
		logger.Info().Msg("scheduler stopped")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler jobs still running at shutdown timeout")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-feed-service worker shutdown complete")
	return runErr
}

// newScorer builds the reputation scorer. Lookups are paced more slowly
// without an API key.
func newScorer(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) *reputation.Scorer {
	s2 := cfg.PaperSources.SemanticScholar
	rc := cfg.Reputation

	pace := rc.PaceWithoutKey
	if s2.APIKey != "" {
		pace = rc.PaceWithKey
	}

	var searcher reputation.AuthorSearcher
	if s2.Enabled {
		searcher = semanticscholar.NewClient(semanticscholar.Config{
			BaseURL: s2.BaseURL,
			APIKey:  s2.APIKey,
			Timeout: s2.Timeout,
		}, nil, metrics)
	} else {
		logger.Warn().Msg("semantic scholar disabled; reputation scores will be 0")
	}

	return reputation.NewScorer(searcher, reputation.DefaultCatalogue(), reputation.Config{
		MaxConcurrent:    rc.MaxConcurrent,
		Pace:             pace,
		MaxAttempts:      rc.MaxAttempts,
		BackoffBase:      rc.BackoffBase,
		BreakerThreshold: rc.BreakerThreshold,
		BreakerCooldown:  rc.BreakerCooldown,
	}, metrics, logger)
}
