package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFromContext(context.Background()))
	})
}

func TestJobRunContext(t *testing.T) {
	ctx := WithJobRun(context.Background(), "arxiv_stack_pointer_fetcher", "run-1")

	assert.Equal(t, "arxiv_stack_pointer_fetcher", JobNameFromContext(ctx))
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(ctx))
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "first")
	ctx = WithRequestID(ctx, "second")
	assert.Equal(t, "second", RequestIDFromContext(ctx))
}
