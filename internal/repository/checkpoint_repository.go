package repository

import (
	"context"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// CheckpointRepository persists the high-water marker of each fetcher job.
type CheckpointRepository interface {
	// Get returns the checkpoint of a job.
	// Returns domain.ErrNotFound when the job has never completed a run.
	Get(ctx context.Context, jobName string) (*domain.JobCheckpoint, error)

	// Upsert overwrites the marker of a job, creating the row on first use.
	Upsert(ctx context.Context, jobName, marker string) error

	// List returns all checkpoints ordered by job name.
	List(ctx context.Context) ([]*domain.JobCheckpoint, error)
}
