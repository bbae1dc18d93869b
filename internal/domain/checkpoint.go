package domain

import "time"

// JobCheckpoint is the high-water mark of a named fetch job.
type JobCheckpoint struct {
	JobName             string
	LastProcessedMarker string
	UpdatedAt           time.Time
}

// RankedResult is a paper plus its composite score and normalized components.
// It is computed per request and never persisted.
type RankedResult struct {
	Paper      *Paper
	Score      float64
	Recency    float64
	Reputation float64
	Popularity float64
}
