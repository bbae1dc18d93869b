package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: path})
	logger.Debug().Str("job_name", "openreview_fetcher_TMLR").Msg("fetch started")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "openreview_fetcher_TMLR", entry["job_name"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Level(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger := NewLogger(LoggingConfig{Level: "warn", Output: path})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "kept")
}

func TestNewLogger_UnopenableOutputFallsBack(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(LoggingConfig{Output: dir})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestOpenOutput(t *testing.T) {
	for _, name := range []string{"", "stdout", "STDOUT"} {
		w, err := openOutput(name)
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, w, name)
	}
	w, err := openOutput("stderr")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	_, err = openOutput(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{" error ", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithJobRun(ctx, "arxiv_stack_pointer_fetcher", "run-9")
	ctxLogger := LoggerFromContext(ctx, logger)
	ctxLogger.Info().Msg("chained context")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	assert.Equal(t, "req-1", logEntry["request_id"])
	assert.Equal(t, "arxiv_stack_pointer_fetcher", logEntry["job_name"])
	assert.Equal(t, "run-9", logEntry["run_id"])
}

func TestLoggerFromContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctxLogger := LoggerFromContext(context.Background(), logger)
	ctxLogger.Info().Msg("bare")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.NotContains(t, logEntry, "request_id")
	assert.NotContains(t, logEntry, "job_name")
}
