package orchestrator

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
)

// ErrNotFound is returned when the target appointment no longer exists in the calendar.
var ErrNotFound = errors.New("appointment not found")

// ValidationError rejects a request before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}

// ConflictError means the requested slot is taken.
type ConflictError struct {
	Date     civil.Date
	Time     civil.Clock
	Conflict availability.Occupied
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s %s conflicts with %s %s-%s",
		e.Date, e.Time, e.Conflict.Kind, e.Conflict.Start, e.Conflict.End)
}

// UpstreamError wraps a failed collaborator call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// errorKind labels err for metrics.
func errorKind(err error) string {
	var ve *ValidationError
	var ce *ConflictError
	var ue *UpstreamError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ce):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &ue):
		return "upstream"
	default:
		return "error"
	}
}
