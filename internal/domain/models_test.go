package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Source
		wantErr  bool
	}{
		{name: "arxiv", input: "arxiv", expected: SourceArxiv},
		{name: "openreview mixed case", input: "OpenReview", expected: SourceOpenReview},
		{name: "padded", input: "  arxiv ", expected: SourceArxiv},
		{name: "unknown", input: "pubmed", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSource(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSource_SupportsVoting(t *testing.T) {
	assert.True(t, SourceArxiv.SupportsVoting())
	assert.False(t, SourceOpenReview.SupportsVoting())
}

func TestParseVoteDirection(t *testing.T) {
	for _, dir := range []string{"up", "down"} {
		got, err := ParseVoteDirection(dir)
		require.NoError(t, err)
		assert.Equal(t, VoteDirection(dir), got)
	}

	for _, dir := range []string{"", "UP", "sideways"} {
		_, err := ParseVoteDirection(dir)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "direction %q", dir)
		assert.Equal(t, "direction", ve.Field)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase conversion", input: "Machine Learning", expected: "machine learning"},
		{name: "trim both ends", input: "  diffusion  ", expected: "diffusion"},
		{name: "collapse tabs", input: "graph\t\tneural nets", expected: "graph neural nets"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTag(tt.input))
		})
	}
}

func TestValidateTag(t *testing.T) {
	t.Run("normalizes", func(t *testing.T) {
		tag, err := ValidateTag("  LLM Agents ")
		require.NoError(t, err)
		assert.Equal(t, "llm agents", tag)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ValidateTag(" ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects overlong", func(t *testing.T) {
		long := ""
		for i := 0; i < MaxTagLength+1; i++ {
			long += "a"
		}
		_, err := ValidateTag(long)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestContainsTag(t *testing.T) {
	tags := []string{"rl", "vision"}
	assert.True(t, ContainsTag(tags, "rl"))
	assert.False(t, ContainsTag(tags, "RL"))
	assert.False(t, ContainsTag(nil, "rl"))
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(EventTypePaperIngested, "2401.00001", PaperIngestedPayload{
		Source:   SourceArxiv,
		SourceID: "2401.00001",
		Title:    "A Paper",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, EventTypePaperIngested, ev.EventType)
	assert.Contains(t, string(ev.Payload), `"source_id":"2401.00001"`)

	_, err = NewEvent(EventTypePaperIngested, "x", make(chan int))
	assert.Error(t, err)
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("tag", "must not be empty")

	assert.Equal(t, ErrInvalidInput, err.Unwrap())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "validation error: tag: must not be empty", err.Error())
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("paper", "42")

	assert.Equal(t, "paper 42: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrInvalidInput))

	var nfe *NotFoundError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &nfe))
	assert.Equal(t, "42", nfe.ID)
}

func TestNewCheckpointMissingError(t *testing.T) {
	err := NewCheckpointMissingError("openreview_fetcher_TMLR", "abc123", 5)

	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.Contains(t, err.Error(), "abc123")
	assert.Contains(t, err.Error(), "5 pages")
}

func TestNewExternalAPIError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewExternalAPIError("arxiv", 503, "unavailable", cause)

	assert.Equal(t, "arxiv: unavailable (HTTP 503): connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "openreview: bad payload", NewExternalAPIError("openreview", 0, "bad payload", nil).Error())
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("semantic_scholar", 0)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "semantic_scholar: rate limited", err.Error())

	err = NewRateLimitError("semantic_scholar", 5*time.Second)
	assert.Equal(t, "semantic_scholar: rate limited, retry after 5s", err.Error())
}
