package repository

import (
	"context"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// PaperRepository handles paper persistence for ingestion, ranking and
// reader interactions.
type PaperRepository interface {
	// ExistingSourceIDs returns the subset of ids already stored for source.
	// Returns an empty set, without querying, when ids is empty.
	ExistingSourceIDs(ctx context.Context, source domain.Source, ids []string) (map[string]struct{}, error)

	// InsertBatch inserts papers in a single transaction. Rows whose
	// (source, source_id) already exists are skipped. It returns the papers
	// that were actually inserted, with their generated IDs set.
	// Any failure rolls back the whole batch.
	InsertBatch(ctx context.Context, papers []*domain.Paper) ([]*domain.Paper, error)

	// Vote increments the up or down counter of a paper by exactly one.
	// Returns false when no paper has the given id.
	Vote(ctx context.Context, id int64, direction domain.VoteDirection) (bool, error)

	// AddUserTag appends an already normalized tag to the paper's user tags.
	AddUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error)

	// RemoveUserTag removes an already normalized tag from the paper's user tags.
	RemoveUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error)

	// ListRankingWindow returns every paper of a source that passes the filter,
	// newest first. Scoring happens in the caller.
	ListRankingWindow(ctx context.Context, filter WindowFilter) ([]*domain.Paper, error)

	// DistinctTags returns the ordered, de-duplicated union of keywords and
	// user tags across all papers, excluding empty strings.
	DistinctTags(ctx context.Context) ([]string, error)

	// DeleteOlderThan removes papers of a source published before cutoff
	// and returns the number of deleted rows.
	DeleteOlderThan(ctx context.Context, source domain.Source, cutoff time.Time) (int64, error)
}

// WindowFilter selects the candidate window for ranking.
type WindowFilter struct {
	// Source is required.
	Source domain.Source

	// Tags must all be present. For arXiv a paper matches when every tag is in
	// its keywords or every tag is in its user tags; other sources match
	// keywords only.
	Tags []string

	// Venue is a case-insensitive substring of venue_or_category.
	Venue string

	// Year matches the publication year when non-zero.
	Year int

	// Category matches the category label exactly.
	Category string

	// MaxRows caps the window size when positive.
	MaxRows uint64
}

// Validate checks the filter.
func (f *WindowFilter) Validate() error {
	if _, err := domain.ParseSource(string(f.Source)); err != nil {
		return err
	}
	if f.Year < 0 {
		return domain.NewValidationError("year", "year must not be negative")
	}
	return nil
}
