package papersources

import (
	"sort"
	"sync"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// Registry holds the configured fetchers keyed by job name.
// It provides thread-safe registration and retrieval.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRegistry creates a new registry with an empty fetcher map.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
	}
}

// Register adds a fetcher to the registry.
// If a fetcher with the same job name already exists, it will be replaced.
func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[f.JobName()] = f
}

// Get returns a fetcher by job name, or nil if not found.
func (r *Registry) Get(jobName string) Fetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetchers[jobName]
}

// All returns every registered fetcher ordered by job name.
// The returned slice is a snapshot and is safe to iterate even if
// fetchers are added concurrently.
func (r *Registry) All() []Fetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetchers := make([]Fetcher, 0, len(r.fetchers))
	for _, f := range r.fetchers {
		fetchers = append(fetchers, f)
	}
	sort.Slice(fetchers, func(i, j int) bool {
		return fetchers[i].JobName() < fetchers[j].JobName()
	})
	return fetchers
}

// BySource returns the fetchers of one source ordered by job name.
func (r *Registry) BySource(source domain.Source) []Fetcher {
	all := r.All()
	out := make([]Fetcher, 0, len(all))
	for _, f := range all {
		if f.Source() == source {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of registered fetchers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fetchers)
}
