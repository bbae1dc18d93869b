//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/paper-feed-service/internal/database"
)

const postgresImage = "postgres:16-alpine"

// SkipIfNoDocker skips the test if the Docker daemon is unreachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// MigrationsPath returns the absolute path of the repository migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// StartPostgres runs a migrated PostgreSQL container for the lifetime of t.
func StartPostgres(t *testing.T) *database.DB {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("paper_feed_test"),
		postgres.WithUsername("paperfeed"),
		postgres.WithPassword("paperfeed"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := zerolog.Nop()
	if os.Getenv("TESTINFRA_VERBOSE") != "" {
		logger = zerolog.New(zerolog.NewTestWriter(t))
	}
	db := database.NewFromPool(pool, logger)

	migrator, err := database.NewMigrator(db, MigrationsPath(), logger)
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}
	defer func() { _ = migrator.Close() }()
	if err := migrator.Up(); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return db
}

// Truncate empties the given tables and resets their identity sequences.
func Truncate(t *testing.T, db *database.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", pq.QuoteIdentifier(table))
		if _, err := db.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
