package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no booking matches the requested id.
var ErrNotFound = errors.New("booking not found")

// ValidationError reports malformed or missing proposal fields. The caller
// can fix the input and try again.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation reasons surfaced to clients.
const (
	ReasonMissingFields    = "missing required fields"
	ReasonStartBeforeEnd   = "start must precede end"
	ReasonInvalidDate      = "date must be in YYYY-MM-DD format"
	ReasonInvalidTime      = "time must be in HH:MM format"
	ReasonInvalidTimeRange = "timeRange must be in \"HH:MM - HH:MM\" format"
)

// ConflictError reports that the proposed slot intersects an existing
// booking.
type ConflictError struct {
	Date      string // date of the proposal
	TimeRange string // proposed range
	Existing  string // id of the booking it collides with
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot already booked: %s on %s", e.TimeRange, e.Date)
}

// StorageError wraps a failure of the storage collaborator. These are the
// only rejections worth retrying.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable marks storage failures as transient.
func (e *StorageError) Retryable() bool { return true }

func invalid(reason string) error { return &ValidationError{Reason: reason} }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
