package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
// This interface allows for easy mocking in tests.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig holds Kafka writer settings.
type PublisherConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic events are written to.
	Topic string
	// BatchSize is the maximum number of messages per produce request.
	BatchSize int
	// BatchTimeout bounds how long a partial batch waits before it is sent.
	BatchTimeout time.Duration
	// ServiceName is stamped on every envelope.
	ServiceName string
}

// KafkaPublisher writes domain events to a Kafka topic.
type KafkaPublisher struct {
	writer  MessageWriter
	emitter *Emitter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka-go writer.
func NewKafkaPublisher(cfg PublisherConfig, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewPublisherWithWriter(writer, NewEmitter(EmitterConfig{ServiceName: cfg.ServiceName}), metrics, logger)
}

// NewPublisherWithWriter creates a publisher over an existing writer.
func NewPublisherWithWriter(writer MessageWriter, emitter *Emitter, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	if emitter == nil {
		emitter = NewEmitter(EmitterConfig{})
	}
	return &KafkaPublisher{
		writer:  writer,
		emitter: emitter,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes events in one call. Events that cannot be encoded are
// skipped and counted as failed; a write error fails every message.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	types := make([]string, 0, len(events))
	for _, ev := range events {
		msg, err := p.emitter.Message(ev)
		if err != nil {
			eventType := "unknown"
			if ev != nil {
				eventType = ev.EventType
			}
			p.metrics.RecordEventFailed(eventType)
			p.logger.Warn().Err(err).Str("event_type", eventType).Msg("skipping unencodable event")
			continue
		}
		msgs = append(msgs, msg)
		types = append(types, ev.EventType)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		for _, t := range types {
			p.metrics.RecordEventFailed(t)
		}
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}

	for _, t := range types {
		p.metrics.RecordEventPublished(t)
	}
	p.logger.Debug().Int("events", len(msgs)).Msg("published events")
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when Kafka is disabled.
type NoopPublisher struct{}

// Publish implements the publisher contract and does nothing.
func (NoopPublisher) Publish(context.Context, ...*domain.Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
