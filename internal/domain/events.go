package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published events.
const (
	EventTypePaperIngested   = "paper.ingested"
	EventTypeFetchCompleted  = "fetch.completed"
	EventTypeCheckpointStale = "fetch.checkpoint_not_found"
)

// Event is a message published to downstream consumers. Delivery is
// at-least-once; consumers deduplicate by EventID or AggregateID.
type Event struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadBytes,
		CreatedAt:   time.Now(),
	}, nil
}

// PaperIngestedPayload is the payload for paper.ingested events.
type PaperIngestedPayload struct {
	Source          Source    `json:"source"`
	SourceID        string    `json:"source_id"`
	Title           string    `json:"title"`
	PaperURL        string    `json:"paper_url"`
	VenueOrCategory string    `json:"venue_or_category"`
	PublishedOn     time.Time `json:"published_on"`
	ReputationScore float64   `json:"reputation_score"`
	JobName         string    `json:"job_name"`
}

// FetchCompletedPayload is the payload for fetch.completed events.
type FetchCompletedPayload struct {
	JobName    string        `json:"job_name"`
	Fetched    int           `json:"fetched"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Marker     string        `json:"marker,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// CheckpointStalePayload is the payload for fetch.checkpoint_not_found events.
type CheckpointStalePayload struct {
	JobName string `json:"job_name"`
	Marker  string `json:"marker"`
	Pages   int    `json:"pages"`
}
