package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/club-reservations/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, request bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&request, nil)))

	serviceLogger(ctx, baseLogger, "ReservationService", "CreateReservation", "resource_id", "r-1").Info("hello")
	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", base.String())
	}
	for _, want := range []string{"service=ReservationService", "operation=CreateReservation", "resource_id=r-1"} {
		if !strings.Contains(request.String(), want) {
			t.Fatalf("expected %q in %q", want, request.String())
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{newError(ErrUnauthorized, "", nil), "unauthorized"},
		{newError(ErrNotFound, "", nil), "not_found"},
		{newError(ErrMutexContention, "", nil), "mutex_contention"},
		{newError(ErrPeriodConflict, "", nil), "period_conflict"},
		{newError(ErrInvalidPeriod, "", nil), "invalid_period"},
		{newError(ErrIllegalTransition, "", nil), "illegal_transition"},
		{newError(ErrStorageFailure, "", nil), "storage_failure"},
		{context.DeadlineExceeded, "canceled"},
		{&ValidationError{}, "validation"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestComputePeriodRange(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	// Thursday 2024-03-14 23:30 UTC is Friday 08:30 in Tokyo.
	reference := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)

	start, end := computePeriodRange(ListPeriodDay, reference, tokyo)
	if !start.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, tokyo)) || !end.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected day range %v - %v", start, end)
	}
	start, _ = computePeriodRange(ListPeriodWeek, reference, tokyo)
	if !start.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, tokyo)) {
		t.Fatalf("expected Monday start, got %v", start)
	}
	start, end = computePeriodRange(ListPeriodMonth, reference, time.UTC)
	if !start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month range %v - %v", start, end)
	}
	if s, e := computePeriodRange(ListPeriodNone, reference, time.UTC); !s.IsZero() || !e.IsZero() {
		t.Fatalf("expected zero range for no preset")
	}
}
