package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// paperColumns is the column list every paper read selects, in scan order.
var paperColumns = []string{
	"id", "source", "source_id", "title", "authors", "abstract",
	"paper_url", "pdf_url", "venue_or_category", "year_or_date", "category",
	"replies_data", "keywords", "user_tags", "reputation_score", "upvotes", "downvotes",
}

const insertPaperQuery = `
	INSERT INTO papers (
		source, source_id, title, authors, abstract,
		paper_url, pdf_url, venue_or_category, year_or_date, category,
		replies_data, keywords, user_tags, reputation_score
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	ON CONFLICT ON CONSTRAINT papers_source_identity_key DO NOTHING
	RETURNING id`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db TxDB
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db TxDB) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// ExistingSourceIDs returns which of ids are already stored for source.
func (r *PgPaperRepository) ExistingSourceIDs(ctx context.Context, source domain.Source, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT source_id FROM papers WHERE source = $1 AND source_id = ANY($2)`,
		source, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan source id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating existing papers: %w", err)
	}

	return existing, nil
}

// InsertBatch inserts papers in one transaction using a single pgx.Batch roundtrip.
func (r *PgPaperRepository) InsertBatch(ctx context.Context, papers []*domain.Paper) ([]*domain.Paper, error) {
	if len(papers) == 0 {
		return []*domain.Paper{}, nil
	}

	batch := &pgx.Batch{}
	for i, paper := range papers {
		if paper == nil {
			return nil, domain.NewValidationError("paper", fmt.Sprintf("paper at index %d is nil", i))
		}
		args, err := insertArgs(paper)
		if err != nil {
			return nil, fmt.Errorf("paper at index %d: %w", i, err)
		}
		batch.Queue(insertPaperQuery, args...)
	}

	var inserted []*domain.Paper
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		inserted = make([]*domain.Paper, 0, len(papers))
		br := tx.SendBatch(ctx, batch)

		for i, paper := range papers {
			var id int64
			if err := br.QueryRow().Scan(&id); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					// Conflict on (source, source_id): already stored.
					continue
				}
				_ = br.Close()
				if isPgError(err, pgUniqueViolation) {
					return domain.NewAlreadyExistsError("paper", paper.SourceID)
				}
				return fmt.Errorf("failed to insert paper at index %d: %w", i, err)
			}
			paper.ID = id
			inserted = append(inserted, paper)
		}

		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}

// Vote increments a vote counter atomically.
func (r *PgPaperRepository) Vote(ctx context.Context, id int64, direction domain.VoteDirection) (bool, error) {
	var query string
	switch direction {
	case domain.VoteUp:
		query = `UPDATE papers SET upvotes = upvotes + 1 WHERE id = $1 RETURNING id`
	case domain.VoteDown:
		query = `UPDATE papers SET downvotes = downvotes + 1 WHERE id = $1 RETURNING id`
	default:
		return false, domain.NewValidationError("direction", fmt.Sprintf("unknown vote direction %q", direction))
	}

	var updated int64
	if err := r.db.QueryRow(ctx, query, id).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record vote: %w", err)
	}

	return true, nil
}

// AddUserTag locks the paper row, checks membership and capacity, then appends.
func (r *PgPaperRepository) AddUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error) {
	if tag == "" {
		return "", domain.NewValidationError("tag", "tag is required")
	}

	var result domain.TagResult
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tags, found, err := lockUserTags(ctx, tx, id)
		if err != nil {
			return err
		}
		switch {
		case !found:
			result = domain.TagNotFound
			return nil
		case domain.ContainsTag(tags, tag):
			result = domain.TagExists
			return nil
		case len(tags) >= domain.MaxUserTags:
			result = domain.TagFull
			return nil
		}

		if err := writeUserTags(ctx, tx, id, append(tags, tag)); err != nil {
			return err
		}
		result = domain.TagSuccess
		return nil
	})
	if err != nil {
		if isPgError(err, pgCheckViolation) {
			return domain.TagFull, nil
		}
		return "", err
	}

	return result, nil
}

// RemoveUserTag locks the paper row and removes tag when present.
func (r *PgPaperRepository) RemoveUserTag(ctx context.Context, id int64, tag string) (domain.TagResult, error) {
	var result domain.TagResult
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tags, found, err := lockUserTags(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			result = domain.TagNotFound
			return nil
		}
		if !domain.ContainsTag(tags, tag) {
			result = domain.TagAbsent
			return nil
		}

		remaining := make([]string, 0, len(tags))
		for _, t := range tags {
			if t != tag {
				remaining = append(remaining, t)
			}
		}
		if err := writeUserTags(ctx, tx, id, remaining); err != nil {
			return err
		}
		result = domain.TagSuccess
		return nil
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

// lockUserTags reads user_tags with a row lock held until the transaction ends.
func lockUserTags(ctx context.Context, tx pgx.Tx, id int64) ([]string, bool, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT user_tags FROM papers WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to lock paper tags: %w", err)
	}

	tags, err := decodeStrings(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal user tags: %w", err)
	}
	return tags, true, nil
}

func writeUserTags(ctx context.Context, tx pgx.Tx, id int64, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal user tags: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE papers SET user_tags = $2 WHERE id = $1`, id, data); err != nil {
		return fmt.Errorf("failed to update user tags: %w", err)
	}
	return nil
}

// ListRankingWindow selects the filtered candidate window for a source.
func (r *PgPaperRepository) ListRankingWindow(ctx context.Context, filter WindowFilter) ([]*domain.Paper, error) {
	query, args, err := buildWindowQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranking window: %w", err)
	}
	defer rows.Close()

	papers := make([]*domain.Paper, 0)
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, nil
}

// buildWindowQuery renders the filter into SQL.
func buildWindowQuery(filter WindowFilter) (string, []interface{}, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}

	q := psql.Select(paperColumns...).
		From("papers").
		Where(sq.Eq{"source": string(filter.Source)})

	if len(filter.Tags) > 0 {
		tagsJSON, err := json.Marshal(filter.Tags)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal tag filter: %w", err)
		}
		if filter.Source == domain.SourceArxiv {
			q = q.Where(sq.Or{
				sq.Expr("keywords @> ?::jsonb", string(tagsJSON)),
				sq.Expr("user_tags @> ?::jsonb", string(tagsJSON)),
			})
		} else {
			q = q.Where(sq.Expr("keywords @> ?::jsonb", string(tagsJSON)))
		}
	}
	if filter.Venue != "" {
		q = q.Where(sq.ILike{"venue_or_category": "%" + filter.Venue + "%"})
	}
	if filter.Year > 0 {
		q = q.Where(sq.Expr("EXTRACT(YEAR FROM year_or_date) = ?", filter.Year))
	}
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}

	q = q.OrderBy("year_or_date DESC", "id DESC")
	if filter.MaxRows > 0 {
		q = q.Limit(filter.MaxRows)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build ranking window query: %w", err)
	}
	return query, args, nil
}

// DistinctTags returns the tag vocabulary across keywords and user tags.
func (r *PgPaperRepository) DistinctTags(ctx context.Context) ([]string, error) {
	query := `
		SELECT tag FROM (
			SELECT jsonb_array_elements_text(keywords) AS tag FROM papers
			UNION
			SELECT jsonb_array_elements_text(user_tags) AS tag FROM papers
		) AS vocabulary
		WHERE tag <> ''
		ORDER BY tag`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// DeleteOlderThan removes papers published before cutoff.
func (r *PgPaperRepository) DeleteOlderThan(ctx context.Context, source domain.Source, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM papers WHERE source = $1 AND year_or_date < $2`,
		source, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired papers: %w", err)
	}
	return result.RowsAffected(), nil
}

// insertArgs returns the positional arguments of insertPaperQuery.
func insertArgs(p *domain.Paper) ([]interface{}, error) {
	authors, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}
	keywords, err := json.Marshal(nonNil(p.Keywords))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keywords: %w", err)
	}
	userTags, err := json.Marshal(nonNil(p.UserTags))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user tags: %w", err)
	}

	var replies []byte
	if len(p.Replies) > 0 {
		replies = p.Replies
	}

	return []interface{}{
		p.Source, p.SourceID, p.Title, authors, p.Abstract,
		p.PaperURL, p.PDFURL, p.VenueOrCategory, p.PublishedOn, p.Category,
		replies, keywords, userTags, p.ReputationScore,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeStrings(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper        domain.Paper
	source       string
	authorsJSON  []byte
	repliesJSON  []byte
	keywordsJSON []byte
	userTagsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.source, &d.paper.SourceID, &d.paper.Title, &d.authorsJSON, &d.paper.Abstract,
		&d.paper.PaperURL, &d.paper.PDFURL, &d.paper.VenueOrCategory, &d.paper.PublishedOn, &d.paper.Category,
		&d.repliesJSON, &d.keywordsJSON, &d.userTagsJSON, &d.paper.ReputationScore, &d.paper.Upvotes, &d.paper.Downvotes,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	var err error
	d.paper.Source = domain.Source(d.source)

	if d.paper.Authors, err = decodeStrings(d.authorsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
	}
	if d.paper.Keywords, err = decodeStrings(d.keywordsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	if d.paper.UserTags, err = decodeStrings(d.userTagsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user tags: %w", err)
	}
	if len(d.repliesJSON) > 0 {
		d.paper.Replies = json.RawMessage(d.repliesJSON)
	}

	return &d.paper, nil
}

// scanPaperFromRows scans the current row from pgx.Rows into a Paper.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
