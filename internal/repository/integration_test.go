//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/repository"
	"github.com/helixir/paper-feed-service/internal/testinfra"
)

func mustPaper(t *testing.T, in domain.PaperInput) *domain.Paper {
	t.Helper()
	p, err := domain.NewPaper(in)
	require.NoError(t, err)
	return p
}

func TestPaperRepository_RoundTrip(t *testing.T) {
	db := testinfra.StartPostgres(t)
	ctx := context.Background()
	testinfra.Truncate(t, db, "papers", "job_checkpoints")

	papers := repository.NewPgPaperRepository(db)
	checkpoints := repository.NewPgCheckpointRepository(db)

	recent := time.Now().UTC().AddDate(0, 0, -2)
	old := time.Now().UTC().AddDate(-1, 0, 0)

	a := mustPaper(t, domain.PaperInput{
		Source: domain.SourceArxiv, SourceID: "2410.00001", Title: "Recent arXiv paper",
		Authors: []string{"Ada Lovelace"}, PaperURL: "http://arxiv.org/abs/2410.00001",
		VenueOrCategory: "cs.lg", PublishedAt: &recent, Keywords: []string{"cs.lg", "cs.ai"},
	})
	b := mustPaper(t, domain.PaperInput{
		Source: domain.SourceArxiv, SourceID: "2310.00002", Title: "Old arXiv paper",
		PaperURL: "http://arxiv.org/abs/2310.00002", VenueOrCategory: "cs.cv",
		PublishedAt: &old, Keywords: []string{"cs.cv"},
	})
	c := mustPaper(t, domain.PaperInput{
		Source: domain.SourceOpenReview, SourceID: "or_abc", Title: "An ICLR paper",
		PaperURL: "https://openreview.net/forum?id=or_abc", VenueOrCategory: "ICLR 2025 Oral",
		PublishedAt: &recent, Category: "Oral", Keywords: []string{"diffusion"},
	})

	inserted, err := papers.InsertBatch(ctx, []*domain.Paper{a, b, c})
	require.NoError(t, err)
	require.Len(t, inserted, 3)

	t.Run("re-inserting is idempotent", func(t *testing.T) {
		again := mustPaper(t, domain.PaperInput{
			Source: domain.SourceArxiv, SourceID: "2410.00001", Title: "Recent arXiv paper",
			PublishedAt: &recent,
		})
		got, err := papers.InsertBatch(ctx, []*domain.Paper{again})
		require.NoError(t, err)
		assert.Empty(t, got)

		existing, err := papers.ExistingSourceIDs(ctx, domain.SourceArxiv, []string{"2410.00001", "2410.99999"})
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"2410.00001": {}}, existing)
	})

	t.Run("votes and tags", func(t *testing.T) {
		ok, err := papers.Vote(ctx, a.ID, domain.VoteUp)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = papers.Vote(ctx, 987654, domain.VoteUp)
		require.NoError(t, err)
		assert.False(t, ok)

		for _, tag := range []string{"one", "two", "three"} {
			res, err := papers.AddUserTag(ctx, a.ID, tag)
			require.NoError(t, err)
			assert.Equal(t, domain.TagSuccess, res)
		}
		res, err := papers.AddUserTag(ctx, a.ID, "four")
		require.NoError(t, err)
		assert.Equal(t, domain.TagFull, res)

		res, err = papers.AddUserTag(ctx, a.ID, "two")
		require.NoError(t, err)
		assert.Equal(t, domain.TagExists, res)

		res, err = papers.RemoveUserTag(ctx, a.ID, "two")
		require.NoError(t, err)
		assert.Equal(t, domain.TagSuccess, res)

		res, err = papers.RemoveUserTag(ctx, a.ID, "two")
		require.NoError(t, err)
		assert.Equal(t, domain.TagAbsent, res)
	})

	t.Run("ranking window filters", func(t *testing.T) {
		window, err := papers.ListRankingWindow(ctx, repository.WindowFilter{
			Source: domain.SourceArxiv,
			Tags:   []string{"one", "three"},
		})
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, "2410.00001", window[0].SourceID)
		assert.Equal(t, int64(1), window[0].Upvotes)

		window, err = papers.ListRankingWindow(ctx, repository.WindowFilter{
			Source:   domain.SourceOpenReview,
			Venue:    "iclr",
			Category: "Oral",
			Year:     recent.Year(),
		})
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, "or_abc", window[0].SourceID)
	})

	t.Run("tag vocabulary", func(t *testing.T) {
		tags, err := papers.DistinctTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cs.ai", "cs.cv", "cs.lg", "diffusion", "one", "three"}, tags)
	})

	t.Run("prune removes only expired arxiv rows", func(t *testing.T) {
		n, err := papers.DeleteOlderThan(ctx, domain.SourceArxiv, time.Now().UTC().AddDate(0, -6, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		existing, err := papers.ExistingSourceIDs(ctx, domain.SourceArxiv, []string{"2410.00001", "2310.00002"})
		require.NoError(t, err)
		assert.Len(t, existing, 1)
	})

	t.Run("checkpoints overwrite", func(t *testing.T) {
		_, err := checkpoints.Get(ctx, "arxiv_stack_pointer_fetcher")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, checkpoints.Upsert(ctx, "arxiv_stack_pointer_fetcher", "2410.00001"))
		require.NoError(t, checkpoints.Upsert(ctx, "arxiv_stack_pointer_fetcher", "2410.00009"))

		cp, err := checkpoints.Get(ctx, "arxiv_stack_pointer_fetcher")
		require.NoError(t, err)
		assert.Equal(t, "2410.00009", cp.LastProcessedMarker)
	})
}
