package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-feed-service/internal/domain"
)

var _ CheckpointRepository = (*PgCheckpointRepository)(nil)

// PgCheckpointRepository is a PostgreSQL implementation of CheckpointRepository.
type PgCheckpointRepository struct {
	db DBTX
}

// NewPgCheckpointRepository creates a new PostgreSQL checkpoint repository.
func NewPgCheckpointRepository(db DBTX) *PgCheckpointRepository {
	return &PgCheckpointRepository{db: db}
}

// Get returns the checkpoint of jobName.
func (r *PgCheckpointRepository) Get(ctx context.Context, jobName string) (*domain.JobCheckpoint, error) {
	if jobName == "" {
		return nil, domain.NewValidationError("job_name", "job name is required")
	}

	var cp domain.JobCheckpoint
	err := r.db.QueryRow(ctx,
		`SELECT job_name, last_processed_marker, updated_at FROM job_checkpoints WHERE job_name = $1`,
		jobName,
	).Scan(&cp.JobName, &cp.LastProcessedMarker, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("checkpoint", jobName)
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &cp, nil
}

// Upsert writes marker as the checkpoint of jobName.
func (r *PgCheckpointRepository) Upsert(ctx context.Context, jobName, marker string) error {
	if jobName == "" {
		return domain.NewValidationError("job_name", "job name is required")
	}
	if marker == "" {
		return domain.NewValidationError("marker", "marker is required")
	}

	query := `
		INSERT INTO job_checkpoints (job_name, last_processed_marker, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (job_name) DO UPDATE SET
			last_processed_marker = EXCLUDED.last_processed_marker,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, jobName, marker); err != nil {
		return fmt.Errorf("failed to upsert checkpoint: %w", err)
	}
	return nil
}

// List returns every stored checkpoint.
func (r *PgCheckpointRepository) List(ctx context.Context) ([]*domain.JobCheckpoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT job_name, last_processed_marker, updated_at FROM job_checkpoints ORDER BY job_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := make([]*domain.JobCheckpoint, 0)
	for rows.Next() {
		var cp domain.JobCheckpoint
		if err := rows.Scan(&cp.JobName, &cp.LastProcessedMarker, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, &cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}

	return checkpoints, nil
}
