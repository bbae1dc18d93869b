package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-feed-service/internal/domain"
)

func TestNewEmitter(t *testing.T) {
	t.Run("uses default service name when empty", func(t *testing.T) {
		emitter := NewEmitter(EmitterConfig{})
		assert.Equal(t, DefaultServiceName, emitter.config.ServiceName)
	})

	t.Run("uses provided service name", func(t *testing.T) {
		emitter := NewEmitter(EmitterConfig{ServiceName: "paper-feed-worker"})
		assert.Equal(t, "paper-feed-worker", emitter.config.ServiceName)
	})
}

func TestEmitter_Message(t *testing.T) {
	emitter := NewEmitter(EmitterConfig{ServiceName: "test-service"})

	t.Run("builds keyed message with headers", func(t *testing.T) {
		ev, err := domain.NewEvent(domain.EventTypePaperIngested, "arxiv:2502.00001", domain.PaperIngestedPayload{
			Source:   domain.SourceArxiv,
			SourceID: "2502.00001",
			Title:    "Attention",
		})
		require.NoError(t, err)

		msg, err := emitter.Message(ev)
		require.NoError(t, err)

		assert.Equal(t, "arxiv:2502.00001", string(msg.Key))
		assert.Empty(t, msg.Topic)

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, domain.EventTypePaperIngested, headers[HeaderEventType])
		assert.Equal(t, ev.EventID, headers[HeaderEventID])
		assert.Equal(t, "test-service", headers[HeaderSource])

		env, err := DecodeEnvelope(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, ev.EventID, env.EventID)
		assert.Equal(t, "test-service", env.Source)
		assert.Equal(t, time.UTC, env.OccurredAt.Location())

		var payload domain.PaperIngestedPayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, "Attention", payload.Title)
	})

	t.Run("empty payload encodes as null", func(t *testing.T) {
		msg, err := emitter.Message(&domain.Event{EventID: "e1", EventType: "x", CreatedAt: time.Now()})
		require.NoError(t, err)

		env, err := DecodeEnvelope(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, "null", string(env.Payload))
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		_, err := emitter.Message(nil)
		assert.Error(t, err)

		_, err = emitter.Message(&domain.Event{EventType: "x"})
		assert.ErrorContains(t, err, "event_id")

		_, err = emitter.Message(&domain.Event{EventID: "e1"})
		assert.ErrorContains(t, err, "event_type")
	})
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"event_id":"1"}`))
	assert.ErrorContains(t, err, "event_type")
}
