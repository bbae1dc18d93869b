// Package dedup filters fetched candidates down to papers not yet stored.
package dedup

import (
	"context"
	"fmt"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// DefaultBatchSize is the number of identities checked per storage query.
const DefaultBatchSize = 100

// IdentityLookup reports which source identities already exist in storage.
type IdentityLookup interface {
	ExistingSourceIDs(ctx context.Context, source domain.Source, ids []string) (map[string]struct{}, error)
}

// CheckerConfig holds the configuration for the duplicate checker.
type CheckerConfig struct {
	// BatchSize is the number of identities sent to storage per lookup.
	BatchSize int
}

// CheckResult is the outcome of filtering one run's candidates.
type CheckResult struct {
	// New holds the candidates not present in storage, in fetch order.
	New []domain.PaperInput

	// Duplicates counts candidates dropped because they were already
	// stored or repeated earlier in the same run.
	Duplicates int
}

// Checker performs identity deduplication of fetched papers against storage.
type Checker struct {
	store IdentityLookup
	cfg   CheckerConfig
}

// NewChecker creates a new Checker with the given store and configuration.
func NewChecker(store IdentityLookup, cfg CheckerConfig) *Checker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Checker{store: store, cfg: cfg}
}

// Check returns the candidates whose (source, source_id) is not yet stored.
//
// The method:
//  1. Collapses repeated identities within the run, keeping the first.
//  2. Queries storage for the remaining identities in batches of BatchSize.
//  3. Returns the unseen candidates in their original order.
//
// A storage failure aborts the check; nothing is returned as new.
func (c *Checker) Check(ctx context.Context, source domain.Source, candidates []domain.PaperInput) (*CheckResult, error) {
	result := &CheckResult{New: make([]domain.PaperInput, 0, len(candidates))}
	if len(candidates) == 0 {
		return result, nil
	}

	unique := make([]domain.PaperInput, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, in := range candidates {
		if _, ok := seen[in.SourceID]; ok {
			result.Duplicates++
			continue
		}
		seen[in.SourceID] = struct{}{}
		unique = append(unique, in)
	}

	existing := make(map[string]struct{})
	for start := 0; start < len(unique); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(unique))

		ids := make([]string, 0, end-start)
		for _, in := range unique[start:end] {
			ids = append(ids, in.SourceID)
		}

		found, err := c.store.ExistingSourceIDs(ctx, source, ids)
		if err != nil {
			return nil, fmt.Errorf("checking existing %s ids (batch at %d): %w", source, start, err)
		}
		for id := range found {
			existing[id] = struct{}{}
		}
	}

	for _, in := range unique {
		if _, ok := existing[in.SourceID]; ok {
			result.Duplicates++
			continue
		}
		result.New = append(result.New, in)
	}
	return result, nil
}
