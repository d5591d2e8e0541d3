package application

import (
	"context"
	"errors"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource, lock or reservation does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrPeriodConflict is returned when the period overlaps a lock or an active reservation.
	ErrPeriodConflict = errors.New("application: period conflict")
	// ErrUnauthorized is returned when the acting club member lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidPeriod is returned when a period does not start before it ends.
	ErrInvalidPeriod = errors.New("application: invalid period")
	// ErrMutexContention is returned when another booking holds one of the hour buckets.
	ErrMutexContention = errors.New("application: slot busy")
	// ErrStorageFailure is returned when the store or the mutex backend fails.
	ErrStorageFailure = errors.New("application: storage failure")
	// ErrIllegalTransition is returned when the reservation's status forbids the operation.
	ErrIllegalTransition = errors.New("application: illegal status transition")
)

// Error pairs an error kind with a message that can be shown to end users.
// errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsBookingConflict reports whether err means the slot is taken, whether the
// mutex or the durable check noticed first.
func IsBookingConflict(err error) bool {
	return errors.Is(err, ErrMutexContention) || errors.Is(err, ErrPeriodConflict)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// mapStoreError translates errors from lower layers into application kinds.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return newError(ErrNotFound, "not found", err)
	case errors.Is(err, authority.ErrUnknownMember):
		return newError(ErrNotFound, "club member not found", err)
	case errors.Is(err, persistence.ErrConflict):
		return newError(ErrPeriodConflict, "the period overlaps a lock or another reservation", err)
	case errors.Is(err, authority.ErrDenied):
		return newError(ErrUnauthorized, "not permitted", err)
	case errors.Is(err, reservation.ErrIllegalTransition):
		return newError(ErrIllegalTransition, "the reservation cannot change from its current status", err)
	case errors.Is(err, scheduler.ErrInvalidPeriod):
		return newError(ErrInvalidPeriod, "start must be before end", err)
	}
	return newError(ErrStorageFailure, "storage failure", err)
}
