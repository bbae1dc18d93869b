// Package domain provides domain models and business logic for the paper feed service.
package domain

import (
	"fmt"
	"strings"
)

// Source identifies the upstream system a paper was ingested from.
// These values must match the source column in the papers table.
type Source string

const (
	SourceArxiv      Source = "arxiv"
	SourceOpenReview Source = "openreview"
)

// ParseSource converts a path or query value into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceArxiv:
		return SourceArxiv, nil
	case SourceOpenReview:
		return SourceOpenReview, nil
	default:
		return "", NewValidationError("source", fmt.Sprintf("unknown source %q", s))
	}
}

// SupportsVoting reports whether readers can vote on papers from this source.
func (s Source) SupportsVoting() bool {
	return s == SourceArxiv
}

// SyncStrategy selects how a fetcher decides which upstream records to consider.
type SyncStrategy string

const (
	// SyncFullResync re-fetches the whole upstream collection and relies on dedup.
	SyncFullResync SyncStrategy = "full_resync"

	// SyncIncremental fetches newest-first until the stored marker is seen.
	SyncIncremental SyncStrategy = "incremental"
)

// VoteDirection is the direction of a reader vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection validates a raw vote direction.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(s) {
	case VoteUp, VoteDown:
		return VoteDirection(s), nil
	default:
		return "", NewValidationError("direction", "must be 'up' or 'down'")
	}
}

// TagResult is the outcome of a user tag mutation.
type TagResult string

const (
	TagSuccess  TagResult = "SUCCESS"
	TagFull     TagResult = "FULL"
	TagExists   TagResult = "EXISTS"
	TagNotFound TagResult = "NOT_FOUND"
	// TagAbsent is returned when removing a tag the paper does not carry.
	TagAbsent TagResult = "TAG_NOT_FOUND"
)
