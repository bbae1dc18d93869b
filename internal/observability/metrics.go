package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper feed service.
// Metrics are organized by subsystem: fetch jobs, source APIs, reputation,
// ranking, user interactions, retention and events. All counters and
// histograms are registered via promauto with the default registry.
//
// Every Record method is safe to call on a nil *Metrics.
type Metrics struct {
	// PapersFetched counts entries parsed from upstream pages, labeled by source.
	PapersFetched *prometheus.CounterVec

	// PapersInserted counts papers committed to storage, labeled by source.
	PapersInserted *prometheus.CounterVec

	// PapersDuplicate counts fetched papers already present in storage, labeled by source.
	PapersDuplicate *prometheus.CounterVec

	// PapersDropped counts entries dropped during parsing, labeled by source and reason.
	PapersDropped *prometheus.CounterVec

	// BatchesFailed counts commit batches rolled back, labeled by source.
	BatchesFailed *prometheus.CounterVec

	// FetchRuns counts fetch job executions, labeled by job and outcome.
	FetchRuns *prometheus.CounterVec

	// FetchDuration observes fetch job duration in seconds, labeled by source.
	FetchDuration *prometheus.HistogramVec

	// CheckpointAborts counts incremental runs aborted because the marker was not found.
	CheckpointAborts *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to upstream APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed upstream requests, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes upstream request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from upstream APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// ReputationLookups counts author lookups, labeled by outcome.
	ReputationLookups *prometheus.CounterVec

	// ReputationScores observes per-paper reputation scores.
	ReputationScores prometheus.Histogram

	// RankingDuration observes ranking request duration in seconds, labeled by source.
	RankingDuration *prometheus.HistogramVec

	// RankingWindowSize observes the number of candidates scored per request.
	RankingWindowSize prometheus.Histogram

	// Votes counts vote requests, labeled by direction and result.
	Votes *prometheus.CounterVec

	// TagMutations counts user tag changes, labeled by operation and result.
	TagMutations *prometheus.CounterVec

	// TagCacheRefreshes counts tag vocabulary recomputations.
	TagCacheRefreshes prometheus.Counter

	// PapersPruned counts papers removed by the retention pruner.
	PapersPruned prometheus.Counter

	// EventsPublished counts events delivered to the broker, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be delivered, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// HTTPRequests counts API requests, labeled by method, route and status.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Fetch jobs
		PapersFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Total number of entries parsed from upstream pages",
		}, []string{"source"}),
		PapersInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_inserted_total",
			Help:      "Total number of papers committed to storage",
		}, []string{"source"}),
		PapersDuplicate: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of fetched papers already present in storage",
		}, []string{"source"}),
		PapersDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_dropped_total",
			Help:      "Total number of upstream entries dropped during parsing",
		}, []string{"source", "reason"}),
		BatchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_batches_failed_total",
			Help:      "Total number of commit batches rolled back",
		}, []string{"source"}),
		FetchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_runs_total",
			Help:      "Total number of fetch job runs",
		}, []string{"job", "outcome"}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch job runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"source"}),
		CheckpointAborts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_aborts_total",
			Help:      "Total number of incremental runs aborted because the stored marker was not found",
		}, []string{"job"}),

		// Source APIs
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to upstream APIs",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to upstream APIs",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of upstream API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from upstream APIs",
		}, []string{"source"}),

		// Reputation
		ReputationLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_lookups_total",
			Help:      "Total number of author reputation lookups by outcome",
		}, []string{"outcome"}),
		ReputationScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reputation_score",
			Help:      "Distribution of per-paper reputation scores",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		// Ranking
		RankingDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Duration of ranking requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RankingWindowSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_window_size",
			Help:      "Number of candidate papers scored per ranking request",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),

		// User interactions
		Votes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of vote requests",
		}, []string{"direction", "result"}),
		TagMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_mutations_total",
			Help:      "Total number of user tag mutations",
		}, []string{"operation", "result"}),
		TagCacheRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_cache_refreshes_total",
			Help:      "Total number of tag vocabulary recomputations",
		}),

		// Retention
		PapersPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_pruned_total",
			Help:      "Total number of papers removed by the retention pruner",
		}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events delivered to the broker",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events that could not be delivered",
		}, []string{"event_type"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordPapersFetched records entries parsed from upstream.
func (m *Metrics) RecordPapersFetched(source string, count int) {
	if m == nil {
		return
	}
	m.PapersFetched.WithLabelValues(source).Add(float64(count))
}

// RecordPapersInserted records papers committed to storage.
func (m *Metrics) RecordPapersInserted(source string, count int) {
	if m == nil {
		return
	}
	m.PapersInserted.WithLabelValues(source).Add(float64(count))
}

// RecordPapersDuplicate records fetched papers suppressed by dedup.
func (m *Metrics) RecordPapersDuplicate(source string, count int) {
	if m == nil {
		return
	}
	m.PapersDuplicate.WithLabelValues(source).Add(float64(count))
}

// RecordPapersDropped records entries dropped during parsing or validation.
func (m *Metrics) RecordPapersDropped(source, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.PapersDropped.WithLabelValues(source, reason).Add(float64(count))
}

// RecordBatchFailed records a rolled back commit batch.
func (m *Metrics) RecordBatchFailed(source string) {
	if m == nil {
		return
	}
	m.BatchesFailed.WithLabelValues(source).Inc()
}

// RecordFetchRun records the outcome and duration of a fetch job run.
func (m *Metrics) RecordFetchRun(job, source, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.FetchRuns.WithLabelValues(job, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordCheckpointAbort records an incremental run aborted on a missing marker.
func (m *Metrics) RecordCheckpointAbort(job string) {
	if m == nil {
		return
	}
	m.CheckpointAborts.WithLabelValues(job).Inc()
}

// RecordSourceRequest records an upstream API request.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed upstream API request.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate-limited upstream response.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordReputationLookup records the outcome of one author lookup.
func (m *Metrics) RecordReputationLookup(outcome string) {
	if m == nil {
		return
	}
	m.ReputationLookups.WithLabelValues(outcome).Inc()
}

// RecordReputationScore records a per-paper reputation score.
func (m *Metrics) RecordReputationScore(score float64) {
	if m == nil {
		return
	}
	m.ReputationScores.Observe(score)
}

// RecordRanking records a ranking request.
func (m *Metrics) RecordRanking(source string, windowSize int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RankingDuration.WithLabelValues(source).Observe(durationSeconds)
	m.RankingWindowSize.Observe(float64(windowSize))
}

// RecordVote records a vote request.
func (m *Metrics) RecordVote(direction, result string) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(direction, result).Inc()
}

// RecordTagMutation records a user tag mutation.
func (m *Metrics) RecordTagMutation(operation, result string) {
	if m == nil {
		return
	}
	m.TagMutations.WithLabelValues(operation, result).Inc()
}

// RecordTagCacheRefresh records a tag vocabulary recomputation.
func (m *Metrics) RecordTagCacheRefresh() {
	if m == nil {
		return
	}
	m.TagCacheRefreshes.Inc()
}

// RecordPapersPruned records papers removed by retention.
func (m *Metrics) RecordPapersPruned(count int64) {
	if m == nil {
		return
	}
	m.PapersPruned.Add(float64(count))
}

// RecordEventPublished records a delivered event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records an undelivered event.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
