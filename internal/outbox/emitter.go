package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// DefaultServiceName is stamped on every envelope when none is configured.
const DefaultServiceName = "paper-feed-service"

// Header keys set on every message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderSource    = "source_service"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Source      string          `json:"source"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// Emitter converts domain events into Kafka messages.
type Emitter struct {
	config EmitterConfig
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	return &Emitter{config: config}
}

// Message builds the Kafka message for an event. The aggregate ID is the
// message key so events for one paper or job land on one partition.
func (e *Emitter) Message(event *domain.Event) (kafka.Message, error) {
	if event == nil {
		return kafka.Message{}, fmt.Errorf("event is nil")
	}
	if event.EventID == "" {
		return kafka.Message{}, fmt.Errorf("event_id is required")
	}
	if event.EventType == "" {
		return kafka.Message{}, fmt.Errorf("event_type is required")
	}

	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	body, err := json.Marshal(Envelope{
		EventID:     event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Source:      e.config.ServiceName,
		OccurredAt:  event.CreatedAt.UTC(),
		Payload:     payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: body,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
			{Key: HeaderSource, Value: []byte(e.config.ServiceName)},
		},
	}, nil
}

// DecodeEnvelope parses a message body produced by Message.
func DecodeEnvelope(value []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("envelope has no event_type")
	}
	return &env, nil
}
