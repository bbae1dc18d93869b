package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength matches the width of the papers.title column.
const MaxTitleLength = 500

// UnknownAuthor is recorded when an upstream entry lists no authors.
const UnknownAuthor = "Unknown Author"

// yearRegex finds a plausible publication year inside free text.
var yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// fullDateLayouts are tried in order before falling back to a year-only parse.
var fullDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Paper is the unified record every source is normalized into.
type Paper struct {
	ID              int64
	Source          Source
	SourceID        string
	Title           string
	Authors         []string
	Abstract        *string
	PaperURL        string
	PDFURL          *string
	VenueOrCategory string
	PublishedOn     time.Time
	Category        *string
	Replies         json.RawMessage
	Keywords        []string
	UserTags        []string
	ReputationScore float64
	Upvotes         int64
	Downvotes       int64
}

// PaperInput carries raw, source-shaped values into NewPaper.
type PaperInput struct {
	Source          Source
	SourceID        string
	Title           string
	Authors         []string
	Abstract        string
	PaperURL        string
	PDFURL          string
	VenueOrCategory string

	// PublishedAt, when set, wins over RawDate.
	PublishedAt *time.Time
	RawDate     string
	// DateFallback is used when neither a full date nor a year can be parsed.
	DateFallback time.Time

	Category        string
	Replies         json.RawMessage
	Keywords        []string
	ReputationScore float64
}

// NewPaper validates raw source data and returns a normalized Paper.
// A missing identity or title yields a *ValidationError.
func NewPaper(in PaperInput) (*Paper, error) {
	if in.Source != SourceArxiv && in.Source != SourceOpenReview {
		return nil, NewValidationError("source", "unknown source")
	}

	sourceID := strings.TrimSpace(in.SourceID)
	if sourceID == "" {
		return nil, NewValidationError("source_id", "is required")
	}

	title := strings.Join(strings.Fields(in.Title), " ")
	if title == "" {
		return nil, NewValidationError("title", "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}

	authors := make([]string, 0, len(in.Authors))
	for _, a := range in.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	var published time.Time
	if in.PublishedAt != nil && !in.PublishedAt.IsZero() {
		published = truncateToDate(*in.PublishedAt)
	} else {
		published = NormalizeDate(in.RawDate, in.DateFallback)
	}

	keywords := in.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	score := in.ReputationScore
	if score < 0 {
		score = 0
	}

	return &Paper{
		Source:          in.Source,
		SourceID:        sourceID,
		Title:           title,
		Authors:         authors,
		Abstract:        optionalString(in.Abstract),
		PaperURL:        strings.TrimSpace(in.PaperURL),
		PDFURL:          optionalString(in.PDFURL),
		VenueOrCategory: strings.TrimSpace(in.VenueOrCategory),
		PublishedOn:     published,
		Category:        optionalString(in.Category),
		Replies:         in.Replies,
		Keywords:        keywords,
		UserTags:        []string{},
		ReputationScore: score,
	}, nil
}

// NormalizeDate converts a source date string to a calendar date.
// It tries full date layouts first, then a four digit year (resolving to
// January 1st), then the fallback. A zero fallback resolves to today.
func NormalizeDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range fullDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return truncateToDate(t)
			}
		}
		if year, ok := ParseYear(raw); ok {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	if fallback.IsZero() {
		fallback = time.Now()
	}
	return truncateToDate(fallback)
}

// ParseYear extracts the first plausible year from free text.
func ParseYear(s string) (int, bool) {
	m := yearRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
