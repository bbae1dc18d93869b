package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/repository"
)

type fakeWindow struct {
	papers []*domain.Paper
	err    error
	got    repository.WindowFilter
	calls  int
}

func (f *fakeWindow) ListRankingWindow(ctx context.Context, filter repository.WindowFilter) ([]*domain.Paper, error) {
	f.calls++
	f.got = filter
	return f.papers, f.err
}

func window(n int) []*domain.Paper {
	papers := make([]*domain.Paper, n)
	for i := range papers {
		papers[i] = &domain.Paper{ID: int64(i + 1), PublishedOn: day(-i), Upvotes: int64(i)}
	}
	return papers
}

func newTestEngine(lister WindowLister) *Engine {
	e := NewEngine(lister, Config{DefaultLimit: 5, MaxLimit: 10, MaxWindow: 1000}, nil, zerolog.Nop())
	e.now = func() time.Time { return now }
	return e
}

func TestEngine_Rank(t *testing.T) {
	t.Run("passes normalized filters to storage", func(t *testing.T) {
		lister := &fakeWindow{papers: window(3)}
		e := newTestEngine(lister)

		_, err := e.Rank(context.Background(), RankRequest{
			Source: domain.SourceOpenReview,
			Filters: Filters{
				Tags:     []string{" Deep  Learning", "deep learning", "", "RL"},
				Venue:    "ICLR",
				Year:     2025,
				Category: "Oral",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, repository.WindowFilter{
			Source:   domain.SourceOpenReview,
			Tags:     []string{"deep learning", "rl"},
			Venue:    "ICLR",
			Year:     2025,
			Category: "Oral",
			MaxRows:  1000,
		}, lister.got)
	})

	t.Run("default limit", func(t *testing.T) {
		e := newTestEngine(&fakeWindow{papers: window(8)})
		results, err := e.Rank(context.Background(), RankRequest{Source: domain.SourceArxiv})
		require.NoError(t, err)
		assert.Len(t, results, 5)
	})

	t.Run("offset applies after scoring", func(t *testing.T) {
		e := newTestEngine(&fakeWindow{papers: window(8)})
		all, err := e.Rank(context.Background(), RankRequest{Source: domain.SourceArxiv, Limit: 10})
		require.NoError(t, err)
		require.Len(t, all, 8)

		page, err := e.Rank(context.Background(), RankRequest{Source: domain.SourceArxiv, Limit: 3, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 3)
		for i := range page {
			assert.Equal(t, all[i+2].Paper.ID, page[i].Paper.ID)
			assert.Equal(t, all[i+2].Score, page[i].Score)
		}
	})

	t.Run("offset past the end is empty", func(t *testing.T) {
		e := newTestEngine(&fakeWindow{papers: window(2)})
		results, err := e.Rank(context.Background(), RankRequest{Source: domain.SourceArxiv, Offset: 5})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("storage error is wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		e := newTestEngine(&fakeWindow{err: boom})
		_, err := e.Rank(context.Background(), RankRequest{Source: domain.SourceArxiv})
		assert.ErrorIs(t, err, boom)
	})
}

func TestEngine_RankValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RankRequest
	}{
		{name: "negative limit", req: RankRequest{Source: domain.SourceArxiv, Limit: -1}},
		{name: "limit over max", req: RankRequest{Source: domain.SourceArxiv, Limit: 11}},
		{name: "negative offset", req: RankRequest{Source: domain.SourceArxiv, Offset: -1}},
		{name: "unknown source", req: RankRequest{Source: "scopus"}},
		{name: "negative year", req: RankRequest{Source: domain.SourceOpenReview, Filters: Filters{Year: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeWindow{}
			_, err := newTestEngine(lister).Rank(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput, fmt.Sprintf("%+v", tt.req))
			assert.Equal(t, 0, lister.calls)
		})
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(&fakeWindow{}, Config{}, nil, zerolog.Nop())
	assert.Equal(t, DefaultLimit, e.cfg.DefaultLimit)
	assert.Equal(t, MaxLimit, e.cfg.MaxLimit)
}
