// Package papersources holds the fetch contract shared by the upstream paper
// APIs and the HTTP plumbing their clients are built on.
package papersources

import (
	"context"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// FetchResult is the outcome of one fetcher run.
type FetchResult struct {
	// Papers are the parsed candidates, newest first. For incremental runs
	// they are strictly newer than the since-marker.
	Papers []domain.PaperInput

	// NewMarker is the identity of the newest record observed this run,
	// whether or not it was new. Nil when nothing was observed.
	NewMarker *string

	// Pages is the number of pages requested.
	Pages int

	// Dropped counts entries discarded for missing identity or title.
	Dropped int

	// Truncated is set when pagination was abandoned after a page exhausted
	// its retries; Papers holds what was collected before it.
	Truncated bool
}

// Fetcher pulls new records from one upstream collection.
//
// Implementations should:
//   - Respect context cancellation
//   - Keep a fixed delay between consecutive page requests
//   - Drop malformed entries without failing the run
//   - Return a *domain.CheckpointMissingError when an incremental run never
//     reaches sinceMarker within the page bound
type Fetcher interface {
	// FetchNew returns records newer than sinceMarker. A nil marker means
	// no checkpoint exists yet.
	FetchNew(ctx context.Context, sinceMarker *string) (*FetchResult, error)

	// JobName is the checkpoint key of this fetcher.
	JobName() string

	// Source identifies the upstream system.
	Source() domain.Source

	// Strategy reports how the fetcher uses its checkpoint.
	Strategy() domain.SyncStrategy
}
