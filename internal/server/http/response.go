package httpserver

import (
	"encoding/json"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// Feed response types for JSON serialization.

type paperResponse struct {
	ID              int64           `json:"id"`
	Source          string          `json:"source"`
	SourceID        string          `json:"source_id"`
	Title           string          `json:"title"`
	Authors         []string        `json:"authors"`
	Abstract        *string         `json:"abstract,omitempty"`
	PaperURL        string          `json:"paper_url"`
	PDFURL          *string         `json:"pdf_url,omitempty"`
	VenueOrCategory string          `json:"venue_or_category"`
	PublishedOn     string          `json:"published_on"`
	Category        *string         `json:"category,omitempty"`
	Replies         json.RawMessage `json:"replies,omitempty"`
	Keywords        []string        `json:"keywords"`
	UserTags        []string        `json:"user_tags"`
	ReputationScore float64         `json:"reputation_score"`
	Upvotes         int64           `json:"upvotes"`
	Downvotes       int64           `json:"downvotes"`
	Votable         bool            `json:"votable"`
}

type componentsResponse struct {
	Recency    float64 `json:"recency"`
	Reputation float64 `json:"reputation"`
	Popularity float64 `json:"popularity"`
}

type rankedPaperResponse struct {
	paperResponse
	Score      float64            `json:"score"`
	Components componentsResponse `json:"components"`
}

type listPapersResponse struct {
	Source string                `json:"source"`
	Papers []rankedPaperResponse `json:"papers"`
	Offset int                   `json:"offset"`
	Count  int                   `json:"count"`
}

type voteResponse struct {
	Success bool `json:"success"`
}

type tagMutationResponse struct {
	Result string `json:"result"`
	Tag    string `json:"tag"`
}

type listTagsResponse struct {
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	return paperResponse{
		ID:              p.ID,
		Source:          string(p.Source),
		SourceID:        p.SourceID,
		Title:           p.Title,
		Authors:         nonNil(p.Authors),
		Abstract:        p.Abstract,
		PaperURL:        p.PaperURL,
		PDFURL:          p.PDFURL,
		VenueOrCategory: p.VenueOrCategory,
		PublishedOn:     p.PublishedOn.Format("2006-01-02"),
		Category:        p.Category,
		Replies:         p.Replies,
		Keywords:        nonNil(p.Keywords),
		UserTags:        nonNil(p.UserTags),
		ReputationScore: p.ReputationScore,
		Upvotes:         p.Upvotes,
		Downvotes:       p.Downvotes,
		Votable:         p.Source.SupportsVoting(),
	}
}

func rankedResultToResponse(r domain.RankedResult) rankedPaperResponse {
	return rankedPaperResponse{
		paperResponse: domainPaperToResponse(r.Paper),
		Score:         r.Score,
		Components: componentsResponse{
			Recency:    r.Recency,
			Reputation: r.Reputation,
			Popularity: r.Popularity,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
