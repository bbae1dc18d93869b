package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels. The typed errors below unwrap to one of these so callers can
// branch with errors.Is without knowing the concrete type.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrCheckpointNotFound means an incremental fetch paged through its
	// whole bound without meeting the stored marker.
	ErrCheckpointNotFound = errors.New("checkpoint marker not found")
)

// ValidationError rejects one input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError names the missing entity, e.g. ("paper", "42").
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyExistsError is a uniqueness conflict on Entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s: already exists", e.Entity, e.ID)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// RateLimitError is an upstream 429. RetryAfter is zero when the upstream
// sent no usable Retry-After header.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("%s: rate limited", e.Source)
	}
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Source, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ExternalAPIError is any other failed upstream call. StatusCode is 0 when
// no response arrived; Cause is the transport error in that case.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

func (e *ExternalAPIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExternalAPIError) Unwrap() error { return e.Cause }

// CheckpointMissingError is returned by a fetcher whose stored marker never
// appeared within Pages pages. The run must not advance its checkpoint.
type CheckpointMissingError struct {
	JobName string
	Marker  string
	Pages   int
}

func NewCheckpointMissingError(jobName, marker string, pages int) *CheckpointMissingError {
	return &CheckpointMissingError{JobName: jobName, Marker: marker, Pages: pages}
}

func (e *CheckpointMissingError) Error() string {
	return fmt.Sprintf("job %s: marker %q not found within %d pages", e.JobName, e.Marker, e.Pages)
}

func (e *CheckpointMissingError) Unwrap() error { return ErrCheckpointNotFound }
