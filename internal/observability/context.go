package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	jobNameKey   contextKey = "job_name"
	runIDKey     contextKey = "run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithJobRun adds a fetch job name and a per-run ID to the context.
func WithJobRun(ctx context.Context, jobName, runID string) context.Context {
	ctx = context.WithValue(ctx, jobNameKey, jobName)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// JobNameFromContext retrieves the job name from context.
func JobNameFromContext(ctx context.Context) string {
	return stringValue(ctx, jobNameKey)
}

// RunIDFromContext retrieves the job run ID from context.
func RunIDFromContext(ctx context.Context) string {
	return stringValue(ctx, runIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
