// Package outbox publishes paper-feed domain events to Kafka and consumes
// them where other replicas need to react.
//
// # Overview
//
// Ingestion runs emit events after each committed batch and at the end of
// every job. Delivery is at-least-once: the publisher writes after the
// database commit, so a crash between the two loses the event, and a
// retried write may duplicate it. Consumers deduplicate by event ID.
//
// # Components
//
//   - Emitter: wraps a domain.Event in the wire envelope and a kafka.Message
//   - KafkaPublisher: writes envelopes through a kafka-go writer
//   - NoopPublisher: used when Kafka is disabled
//   - Listener: reads envelopes and invalidates the local tag cache when
//     new papers arrive
//
// # Event Types
//
//   - paper.ingested: a paper was committed to storage
//   - fetch.completed: a fetch job finished and advanced its checkpoint
//   - fetch.checkpoint_not_found: an incremental job aborted on a stale marker
//
// # Usage
//
//	pub := outbox.NewKafkaPublisher(outbox.PublisherConfig{
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "events.paper_feed",
//	}, metrics, logger)
//	defer pub.Close()
//
//	err := pub.Publish(ctx, event)
package outbox
