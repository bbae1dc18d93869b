package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
)

// mockWriter implements MessageWriter for testing.
type mockWriter struct {
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func mustEvent(t *testing.T, eventType, aggregateID string) *domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(eventType, aggregateID, map[string]string{"id": aggregateID})
	require.NoError(t, err)
	return ev
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("writes all events in one call", func(t *testing.T) {
		metrics := observability.NewMetrics("outbox_publish_test")
		writer := &mockWriter{}
		pub := NewPublisherWithWriter(writer, nil, metrics, zerolog.Nop())

		err := pub.Publish(context.Background(),
			mustEvent(t, domain.EventTypePaperIngested, "arxiv:1"),
			mustEvent(t, domain.EventTypePaperIngested, "arxiv:2"),
			mustEvent(t, domain.EventTypeFetchCompleted, "arxiv_stack_pointer_fetcher"),
		)
		require.NoError(t, err)

		require.Len(t, writer.written, 3)
		assert.Equal(t, "arxiv:1", string(writer.written[0].Key))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypePaperIngested)))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeFetchCompleted)))
	})

	t.Run("write error counts every event as failed", func(t *testing.T) {
		metrics := observability.NewMetrics("outbox_publish_fail_test")
		boom := errors.New("leader not available")
		pub := NewPublisherWithWriter(&mockWriter{writeErr: boom}, nil, metrics, zerolog.Nop())

		err := pub.Publish(context.Background(),
			mustEvent(t, domain.EventTypePaperIngested, "arxiv:1"),
			mustEvent(t, domain.EventTypePaperIngested, "arxiv:2"),
		)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsFailed.WithLabelValues(domain.EventTypePaperIngested)))
	})

	t.Run("skips unencodable events", func(t *testing.T) {
		writer := &mockWriter{}
		pub := NewPublisherWithWriter(writer, nil, nil, zerolog.Nop())

		err := pub.Publish(context.Background(), nil, &domain.Event{EventType: "x"}, mustEvent(t, "x", "a"))
		require.NoError(t, err)
		assert.Len(t, writer.written, 1)
	})

	t.Run("nothing to write", func(t *testing.T) {
		writer := &mockWriter{writeErr: errors.New("must not be called")}
		pub := NewPublisherWithWriter(writer, nil, nil, zerolog.Nop())
		assert.NoError(t, pub.Publish(context.Background()))
	})
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &mockWriter{}
	pub := NewPublisherWithWriter(writer, nil, nil, zerolog.Nop())
	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestNoopPublisher(t *testing.T) {
	var pub NoopPublisher
	assert.NoError(t, pub.Publish(context.Background(), mustEvent(t, "x", "a")))
	assert.NoError(t, pub.Close())
}
