package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "paper_feed_schema_migrations"

// Migrator applies the SQL files under migrations/ to the feed database.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	logger zerolog.Logger
}

// MigrationStatus describes the schema version recorded in MigrationsTable.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	Applied bool `json:"applied"`
}

// NewMigrator opens a migrate instance over the pool. The pool stays owned
// by db; Close releases only the database/sql bridge.
func NewMigrator(db *DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if migrationsPath == "" {
		return nil, fmt.Errorf("migrations path is required")
	}
	if _, err := os.Stat(migrationsPath); err != nil {
		return nil, fmt.Errorf("migrations path validation failed: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		m:      m,
		sqlDB:  sqlDB,
		logger: logger.With().Str("component", "migrator").Str("path", migrationsPath).Logger(),
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.run("up", m.m.Up)
}

// Down rolls every migration back, dropping the papers and checkpoints.
func (m *Migrator) Down() error {
	m.logger.Warn().Msg("rolling back all migrations")
	return m.run("down", m.m.Down)
}

// Steps applies n migrations forward (n > 0) or back (n < 0).
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

// Force records version as applied and clean without running SQL. Used to
// recover from a dirty state after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing migration version")
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Status reports the current schema version. A database without any applied
// migration yields Applied=false and no error.
func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Close releases the migrate source and the database/sql bridge.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	if err := m.sqlDB.Close(); err != nil && dbErr == nil {
		dbErr = err
	}
	return errors.Join(sourceErr, dbErr)
}

// run executes op, treating "nothing to do" as success.
func (m *Migrator) run(name string, op func() error) error {
	err := ignoreNoChange(op())
	if err != nil {
		return fmt.Errorf("migrate %s: %w", name, err)
	}
	status, statusErr := m.Status()
	event := m.logger.Info().Str("operation", name)
	if statusErr == nil {
		event = event.Uint("version", status.Version).Bool("dirty", status.Dirty)
	}
	event.Msg("migration finished")
	return nil
}

// ignoreNoChange maps the "already there" outcomes of migrate to nil.
// Steps past the last file surfaces as os.ErrNotExist.
func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MigrateUp opens a migrator, applies pending migrations and closes it.
// Binaries call it at startup when auto-migration is enabled.
func MigrateUp(db *DB, migrationsPath string, logger zerolog.Logger) (err error) {
	m, err := NewMigrator(db, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close migrator: %w", closeErr)
		}
	}()
	return m.Up()
}
