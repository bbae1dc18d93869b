// Package semanticscholar provides a client for the Semantic Scholar author search.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// AuthorSearchResponse represents the response from the author search endpoint.
type AuthorSearchResponse struct {
	// Total is the total number of authors matching the query.
	Total int `json:"total"`

	// Data contains the matched authors, best match first.
	Data []AuthorResult `json:"data"`
}

// AuthorResult represents a single author in the search response.
type AuthorResult struct {
	// AuthorID is the Semantic Scholar author identifier.
	AuthorID string `json:"authorId"`

	// Name is the author's display name.
	Name string `json:"name"`

	// Papers lists the author's papers with only the requested fields set.
	Papers []AuthorPaper `json:"papers"`
}

// AuthorPaper is a paper entry restricted to fields=papers.venue.
type AuthorPaper struct {
	PaperID string `json:"paperId"`
	Venue   string `json:"venue"`
}

// Venues returns the non-empty venue strings of the author's papers.
func (a *AuthorResult) Venues() []string {
	out := make([]string, 0, len(a.Papers))
	for _, p := range a.Papers {
		if p.Venue != "" {
			out = append(out, p.Venue)
		}
	}
	return out
}
