package openreview

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/classify"
	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

// Fetcher syncs one OpenReview venue.
type Fetcher struct {
	client  *Client
	venue   Venue
	capture *papersources.PageCapture
	logger  zerolog.Logger
	now     func() time.Time
}

// Ensure Fetcher implements the Fetcher interface.
var _ papersources.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher for venue. capture may be nil.
func NewFetcher(client *Client, venue Venue, capture *papersources.PageCapture, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		venue:   venue,
		capture: capture,
		logger: logger.With().
			Str("component", "openreview_fetcher").
			Str("job_name", venue.JobName).
			Str("venue_id", venue.ID).
			Logger(),
		now: time.Now,
	}
}

// JobName returns the checkpoint key.
func (f *Fetcher) JobName() string { return f.venue.JobName }

// Source returns domain.SourceOpenReview.
func (f *Fetcher) Source() domain.Source { return domain.SourceOpenReview }

// Strategy returns the venue's sync strategy.
func (f *Fetcher) Strategy() domain.SyncStrategy { return f.venue.Strategy }

// Venue returns the venue this fetcher syncs.
func (f *Fetcher) Venue() Venue { return f.venue }

// FetchNew pages the venue newest-first.
//
// Full-resync venues ignore sinceMarker and walk every page up to the cap.
// Incremental venues stop at sinceMarker; a nil marker walks up to the cap
// as a backfill, and a marker not met within the cap aborts with a
// *domain.CheckpointMissingError.
func (f *Fetcher) FetchNew(ctx context.Context, sinceMarker *string) (*papersources.FetchResult, error) {
	cfg := f.client.config
	if f.venue.Strategy != domain.SyncIncremental {
		sinceMarker = nil
	}

	result := &papersources.FetchResult{}
	found := false
	offset := 0

pages:
	for page := 0; page < cfg.MaxPages; page++ {
		p, err := f.client.ListNotes(ctx, f.venue.ID, offset)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.logger.Error().Err(err).
				Int("page", page).
				Int("offset", offset).
				Int("collected", len(result.Papers)).
				Msg("page failed after retries, ending pagination")
			result.Truncated = true
			break
		}
		result.Pages++
		offset += len(p.Notes)

		parsed := make([]domain.PaperInput, 0, len(p.Notes))
		candidates := 0
		for _, raw := range p.Notes {
			var note Note
			if err := json.Unmarshal(raw, &note); err != nil {
				candidates++
				result.Dropped++
				f.logger.Warn().Err(err).Int("page", page).Msg("dropping undecodable note")
				continue
			}
			if !note.IsTopLevel() {
				continue
			}
			candidates++
			in, ok := f.noteToInput(&note)
			if !ok {
				result.Dropped++
				f.logger.Warn().Int("page", page).Str("note_id", note.ID).Msg("dropping note without id or title")
				continue
			}
			parsed = append(parsed, in)
		}
		f.capture.Check(f.venue.JobName, page, len(parsed), candidates, p.Raw)

		for _, in := range parsed {
			if result.NewMarker == nil {
				marker := in.SourceID
				result.NewMarker = &marker
			}
			if sinceMarker != nil && in.SourceID == *sinceMarker {
				found = true
				break pages
			}
			result.Papers = append(result.Papers, in)
		}

		if len(p.Notes) < cfg.PageSize {
			break
		}
	}

	if sinceMarker != nil && !found {
		if result.Truncated {
			result.NewMarker = nil
			return result, nil
		}
		f.logger.Error().
			Str("marker", *sinceMarker).
			Int("pages", result.Pages).
			Msg("checkpoint marker not found, aborting run")
		return nil, domain.NewCheckpointMissingError(f.venue.JobName, *sinceMarker, result.Pages)
	}

	f.logger.Info().
		Int("papers", len(result.Papers)).
		Int("pages", result.Pages).
		Int("dropped", result.Dropped).
		Str("strategy", string(f.venue.Strategy)).
		Msg("openreview fetch complete")
	return result, nil
}

// noteToInput converts a top-level note. It reports false when the note has
// no id or title.
func (f *Fetcher) noteToInput(note *Note) (domain.PaperInput, bool) {
	id := sanitize(strings.TrimSpace(note.ID))
	title := note.Content.String("title")
	if id == "" || strings.TrimSpace(title) == "" {
		return domain.PaperInput{}, false
	}

	forum := note.Forum
	if forum == "" {
		forum = id
	}
	site := strings.TrimRight(f.client.config.SiteURL, "/")

	pdfURL := note.Content.String("pdf")
	if strings.HasPrefix(pdfURL, "/") {
		pdfURL = site + pdfURL
	}

	var decisions []string
	var replies json.RawMessage
	if note.Details != nil {
		for _, r := range note.Details.Replies {
			if d := r.Content.String("decision"); d != "" {
				decisions = append(decisions, d)
			}
		}
		if f.client.config.IncludeReplies && len(note.Details.Replies) > 0 {
			if b, err := json.Marshal(note.Details.Replies); err == nil {
				replies = b
			}
		}
	}

	in := domain.PaperInput{
		Source:          domain.SourceOpenReview,
		SourceID:        id,
		Title:           title,
		Authors:         note.Content.Strings("authors"),
		Abstract:        note.Content.String("abstract"),
		PaperURL:        site + "/forum?id=" + forum,
		PDFURL:          pdfURL,
		VenueOrCategory: f.venue.Name,
		RawDate:         f.venue.Name,
		DateFallback:    f.now(),
		Replies:         replies,
		Keywords:        classify.Keywords(note.Content.Any("keywords")),
	}
	if category := classify.OpenReviewCategory(note.Content.String("venue"), note.Content.Strings("certifications"), decisions); category != nil {
		in.Category = *category
	}

	switch {
	case note.PDate != nil && *note.PDate > 0:
		t := time.UnixMilli(*note.PDate).UTC()
		in.PublishedAt = &t
	case note.CDate != nil && *note.CDate > 0:
		t := time.UnixMilli(*note.CDate).UTC()
		in.PublishedAt = &t
	}
	return in, true
}
