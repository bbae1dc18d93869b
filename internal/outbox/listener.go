package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// MessageReader is the subset of *kafka.Reader used by the listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Invalidator drops cached state derived from stored papers.
type Invalidator interface {
	Invalidate()
}

// ListenerConfig holds configuration for the event listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic carrying paper-feed events.
	Topic string
	// GroupID is the consumer group ID. Each server replica needs its own
	// group so every replica sees every event.
	GroupID string
}

// Listener consumes paper-feed events and invalidates the tag cache when a
// fetch job commits new papers.
type Listener struct {
	reader MessageReader
	cache  Invalidator
	logger zerolog.Logger
}

// NewListener creates a listener backed by a kafka-go reader.
func NewListener(cfg ListenerConfig, cache Invalidator, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewListenerWithReader(reader, cache, logger)
}

// NewListenerWithReader creates a listener over an existing reader.
func NewListenerWithReader(reader MessageReader, cache Invalidator, logger zerolog.Logger) *Listener {
	return &Listener{
		reader: reader,
		cache:  cache,
		logger: logger.With().Str("component", "event_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting event listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("event listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		env, err := DecodeEnvelope(msg.Value)
		if err != nil {
			l.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to decode event")
			continue
		}

		l.handle(env)
	}
}

func (l *Listener) handle(env *Envelope) {
	switch env.EventType {
	case domain.EventTypeFetchCompleted, domain.EventTypePaperIngested:
		l.cache.Invalidate()
		l.logger.Debug().
			Str("event_type", env.EventType).
			Str("aggregate_id", env.AggregateID).
			Msg("tag cache invalidated")
	default:
		l.logger.Debug().Str("event_type", env.EventType).Msg("ignoring event")
	}
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing event listener")
	return l.reader.Close()
}
