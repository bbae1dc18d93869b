package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
)

func TestPgCheckpointRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored checkpoint", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now().UTC()
		mock.ExpectQuery("SELECT job_name, last_processed_marker, updated_at FROM job_checkpoints").
			WithArgs("arxiv_stack_pointer_fetcher").
			WillReturnRows(pgxmock.NewRows([]string{"job_name", "last_processed_marker", "updated_at"}).
				AddRow("arxiv_stack_pointer_fetcher", "2410.01234", now))

		repo := NewPgCheckpointRepository(mock)
		cp, err := repo.Get(ctx, "arxiv_stack_pointer_fetcher")
		require.NoError(t, err)
		assert.Equal(t, "2410.01234", cp.LastProcessedMarker)
		assert.Equal(t, now, cp.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing checkpoint is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("FROM job_checkpoints").
			WithArgs("openreview_fetcher_TMLR").
			WillReturnRows(pgxmock.NewRows([]string{"job_name", "last_processed_marker", "updated_at"}))

		repo := NewPgCheckpointRepository(mock)
		cp, err := repo.Get(ctx, "openreview_fetcher_TMLR")
		assert.Nil(t, cp)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty job name is invalid", func(t *testing.T) {
		repo := NewPgCheckpointRepository(nil)
		_, err := repo.Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgCheckpointRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("writes marker", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO job_checkpoints").
			WithArgs("openreview_fetcher_ICLR_2025", "note_xyz").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewPgCheckpointRepository(mock)
		require.NoError(t, repo.Upsert(ctx, "openreview_fetcher_ICLR_2025", "note_xyz"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty marker is invalid", func(t *testing.T) {
		repo := NewPgCheckpointRepository(nil)
		err := repo.Upsert(ctx, "job", "")
		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "marker", validationErr.Field)
	})

	t.Run("wraps exec errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO job_checkpoints").
			WithArgs("job", "m").
			WillReturnError(errors.New("disk full"))

		repo := NewPgCheckpointRepository(mock)
		err = repo.Upsert(ctx, "job", "m")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert checkpoint")
	})
}

func TestPgCheckpointRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("ORDER BY job_name").
		WillReturnRows(pgxmock.NewRows([]string{"job_name", "last_processed_marker", "updated_at"}).
			AddRow("arxiv_stack_pointer_fetcher", "2410.1", now).
			AddRow("openreview_fetcher_TMLR", "abc", now))

	repo := NewPgCheckpointRepository(mock)
	cps, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "openreview_fetcher_TMLR", cps[1].JobName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
