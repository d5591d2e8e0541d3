package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestErrorMatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := persistence.ErrConflict
	err := newError(ErrPeriodConflict, "overlaps", cause)
	if !errors.Is(err, ErrPeriodConflict) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to match, got %v", err)
	}
	if err.Error() != "overlaps: persistence: period conflict" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsBookingConflict(err) || !IsBookingConflict(newError(ErrMutexContention, "", nil)) {
		t.Fatalf("expected booking conflict")
	}
	if IsBookingConflict(newError(ErrNotFound, "", nil)) {
		t.Fatalf("not found is not a booking conflict")
	}
	if got := newError(ErrNotFound, "", nil).Error(); got != ErrNotFound.Error() {
		t.Fatalf("expected kind text fallback, got %q", got)
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not found", fmt.Errorf("get: %w", persistence.ErrNotFound), ErrNotFound},
		{"conflict", persistence.ErrConflict, ErrPeriodConflict},
		{"denied", authority.ErrDenied, ErrUnauthorized},
		{"unknown member", authority.ErrUnknownMember, ErrNotFound},
		{"illegal", fmt.Errorf("x: %w", reservation.ErrIllegalTransition), ErrIllegalTransition},
		{"invalid period", scheduler.ErrInvalidPeriod, ErrInvalidPeriod},
		{"other", errors.New("disk full"), ErrStorageFailure},
		{"canceled", context.Canceled, context.Canceled},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapStoreError(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if mapStoreError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	vErr := &ValidationError{FieldErrors: map[string]string{"title": "required"}}
	if got := mapStoreError(vErr); got != vErr {
		t.Fatalf("validation errors must pass through")
	}
}
