package arxiv

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/classify"
	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

// Fetcher walks the newest arXiv submissions back to the stored marker.
// arXiv always syncs incrementally; the marker is the newest arXiv ID seen.
type Fetcher struct {
	client  *Client
	capture *papersources.PageCapture
	logger  zerolog.Logger
	now     func() time.Time
}

// Ensure Fetcher implements the Fetcher interface.
var _ papersources.Fetcher = (*Fetcher)(nil)

// NewFetcher creates an arXiv fetcher. capture may be nil.
func NewFetcher(client *Client, capture *papersources.PageCapture, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		capture: capture,
		logger:  logger.With().Str("component", "arxiv_fetcher").Str("job_name", client.config.JobName).Logger(),
		now:     time.Now,
	}
}

// JobName returns the checkpoint key.
func (f *Fetcher) JobName() string { return f.client.config.JobName }

// Source returns domain.SourceArxiv.
func (f *Fetcher) Source() domain.Source { return domain.SourceArxiv }

// Strategy returns domain.SyncIncremental.
func (f *Fetcher) Strategy() domain.SyncStrategy { return domain.SyncIncremental }

// FetchNew pages newest-first until sinceMarker is met.
//
// Without a marker the newest TargetFetchSize entries are returned. With a
// marker, entries strictly newer than it are returned; if the marker does not
// appear within MaxPages a *domain.CheckpointMissingError is returned and no
// papers. A page that fails after its retries ends pagination: the entries
// collected so far are returned with Truncated set, and NewMarker is withheld
// when the marker was not reached so the gap is fetched again next run.
func (f *Fetcher) FetchNew(ctx context.Context, sinceMarker *string) (*papersources.FetchResult, error) {
	cfg := f.client.config
	result := &papersources.FetchResult{}
	found := false

pages:
	for page := 0; page < cfg.MaxPages; page++ {
		p, err := f.client.FetchPage(ctx, page*cfg.PageSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.logger.Error().Err(err).
				Int("page", page).
				Str("error_kind", errorKind(err)).
				Int("collected", len(result.Papers)).
				Msg("page failed after retries, ending pagination")
			result.Truncated = true
			break
		}
		result.Pages++

		entries := p.Feed.Entries
		parsed := make([]domain.PaperInput, 0, len(entries))
		for i := range entries {
			in, ok := f.entryToInput(&entries[i])
			if !ok {
				result.Dropped++
				f.logger.Warn().Int("page", page).Str("entry_id", entries[i].ID).Msg("dropping entry without id or title")
				continue
			}
			parsed = append(parsed, in)
		}
		f.capture.Check(cfg.JobName, page, len(parsed), len(entries), p.Raw)

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
			if sinceMarker == nil && len(result.Papers) >= cfg.TargetFetchSize {
				break pages
			}
		}

		if len(entries) < cfg.PageSize {
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
		return nil, domain.NewCheckpointMissingError(cfg.JobName, *sinceMarker, result.Pages)
	}

	f.logger.Info().
		Int("papers", len(result.Papers)).
		Int("pages", result.Pages).
		Int("dropped", result.Dropped).
		Bool("marker_found", found).
		Msg("arxiv fetch complete")
	return result, nil
}

// entryToInput converts an Atom entry. It reports false when the entry has
// no usable id or title.
func (f *Fetcher) entryToInput(entry *Entry) (domain.PaperInput, bool) {
	arxivID := entry.Identity()
	title := normalizeWhitespace(entry.Title)
	if arxivID == "" || title == "" {
		return domain.PaperInput{}, false
	}

	authors := entry.AuthorNames()
	if len(authors) == 0 {
		authors = []string{domain.UnknownAuthor}
	}
	keywords := classify.ArchiveKeywords(entry.CategoryTerms())

	in := domain.PaperInput{
		Source:          domain.SourceArxiv,
		SourceID:        arxivID,
		Title:           title,
		Authors:         authors,
		Abstract:        normalizeWhitespace(entry.Summary),
		PaperURL:        "http://arxiv.org/abs/" + arxivID,
		PDFURL:          entry.PDFLink(),
		VenueOrCategory: keywords[0],
		DateFallback:    f.now(),
		Keywords:        keywords,
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", entry.Published); err == nil {
		in.PublishedAt = &t
	}
	return in, true
}
