// Package classify derives categories and keywords from source metadata.
package classify

import (
	"strings"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// DefaultArchiveKeyword is used when an archive entry lists no categories.
const DefaultArchiveKeyword = "cs.lg"

// presentationTokens are the venue-string markers of an accepted paper's format,
// in priority order.
var presentationTokens = []string{"oral", "spotlight", "poster"}

// OpenReviewCategory picks the category of a peer-reviewed paper.
//
// The venue string wins when it names a presentation format. Otherwise the
// first certification mentioning "certification" is used, then the first
// accepting reply decision that names a format. Other certification labels
// never become a category. The result is title-cased; nil means no category.
func OpenReviewCategory(venue string, certifications []string, replyDecisions []string) *string {
	lower := strings.ToLower(venue)
	for _, token := range presentationTokens {
		if strings.Contains(lower, token) {
			return titlePtr(token)
		}
	}

	for _, c := range certifications {
		c = strings.TrimSpace(c)
		if strings.Contains(strings.ToLower(c), "certification") {
			return titlePtr(c)
		}
	}

	for _, d := range replyDecisions {
		lower := strings.ToLower(d)
		if !strings.Contains(lower, "accept") {
			continue
		}
		for _, token := range presentationTokens {
			if strings.Contains(lower, token) {
				return titlePtr(token)
			}
		}
	}
	return nil
}

// Keywords normalizes a keyword field that may be a single delimited string
// or a list. Semicolons count as commas; entries are trimmed, lowercased and
// de-duplicated in order.
func Keywords(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(strings.ReplaceAll(v, ";", ","), ",")
	case []string:
		for _, s := range v {
			parts = append(parts, strings.Split(strings.ReplaceAll(s, ";", ","), ",")...)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, strings.Split(strings.ReplaceAll(s, ";", ","), ",")...)
			}
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		k := domain.NormalizeTag(p)
		if k == "" || domain.ContainsTag(out, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// ArchiveKeywords lowercases archive categories, defaulting to cs.lg.
func ArchiveKeywords(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || domain.ContainsTag(out, c) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{DefaultArchiveKeyword}
	}
	return out
}

// TitleCase upper-cases the first letter of each space separated word and
// lower-cases the rest.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func titlePtr(s string) *string {
	t := TitleCase(s)
	return &t
}
