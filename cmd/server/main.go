// Package main provides the entry point for the paper feed HTTP API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helixir/paper-feed-service/internal/config"
	"github.com/helixir/paper-feed-service/internal/database"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/outbox"
	"github.com/helixir/paper-feed-service/internal/ranking"
	"github.com/helixir/paper-feed-service/internal/repository"
	httpserver "github.com/helixir/paper-feed-service/internal/server/http"
	"github.com/helixir/paper-feed-service/internal/tagcache"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
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
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-feed-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		metricsPath = cfg.Metrics.Path
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

	paperRepo := repository.NewPgPaperRepository(db)
	tags := tagcache.New(paperRepo, cfg.TagCache.TTL, metrics, logger)
	engine := ranking.NewEngine(paperRepo, ranking.Config{
		DefaultLimit: cfg.Ranking.DefaultLimit,
		MaxLimit:     cfg.Ranking.MaxLimit,
		MaxWindow:    cfg.Ranking.MaxWindow,
	}, metrics, logger)

	httpCfg := httpserver.Config{
		Address:            cfg.Server.HTTPAddress(),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        2 * time.Minute,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MutationRateLimit:  cfg.Server.MutationRateLimit,
		MutationRateWindow: cfg.Server.MutationRateWindow,
		MetricsPath:        metricsPath,
	}
	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Ranker:  engine,
		Papers:  paperRepo,
		Tags:    tags,
		Health:  db,
		Metrics: metrics,
		Logger:  logger,
	})

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Follow ingestion events so new worker tags show up before the TTL.
	var listener *outbox.Listener
	if cfg.Kafka.Enabled {
		listener = outbox.NewListener(outbox.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, tags, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("event listener error: %w", err)
			}
		}()
	}

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Bool("event_listener", listener != nil).
		Msg("paper-feed-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-feed-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error().Err(err).Msg("event listener close error")
		}
	}

	logger.Info().Msg("paper-feed-service shutdown complete")
	return nil
}
