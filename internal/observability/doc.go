// Package observability provides logging and metrics support for the paper
// feed service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.LoggerFromContext(ctx, logger) // request_id, job_name, run_id
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_feed")
//	metrics.RecordPapersFetched("arxiv", 42)
//
// A nil *Metrics is valid and records nothing, which keeps unit tests free of
// the global Prometheus registry.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - job_name: fetch job (checkpoint key)
//   - run_id: one execution of a job
//   - source: arxiv or openreview
//   - source_id: upstream identity of a paper
//   - service: always paper-feed-service
package observability
