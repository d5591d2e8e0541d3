// Package reservation holds the reservation lifecycle and its notification catalog.
package reservation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalTransition is returned when an event is not allowed from the current status.
var ErrIllegalTransition = errors.New("reservation: illegal transition")

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCanceled  Status = "CANCELED"
)

// ActiveStatuses block overlapping reservations and locks.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ParseStatus normalises s into a known status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("reservation: unknown status %q", s)
}

// Active reports whether the status occupies its resource.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCanceled
}

// Event is a lifecycle action applied to a reservation.
type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventCancel  Event = "cancel"
	// EventModify changes the period or resource and sends the reservation back for approval.
	EventModify Event = "modify"
	// EventEdit changes descriptive fields only and keeps the status.
	EventEdit Event = "edit"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventApprove: StatusConfirmed,
		EventReject:  StatusRejected,
		EventCancel:  StatusCanceled,
		EventModify:  StatusPending,
		EventEdit:    StatusPending,
	},
	StatusConfirmed: {
		EventCancel: StatusCanceled,
		EventModify: StatusPending,
		EventEdit:   StatusConfirmed,
	},
}

// Transition returns the status reached by applying event to from.
func Transition(from Status, event Event) (Status, error) {
	next, ok := transitions[from][event]
	if !ok {
		return from, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, event, from)
	}
	return next, nil
}

// Allowed reports whether event may be applied to from.
func Allowed(from Status, event Event) bool {
	_, ok := transitions[from][event]
	return ok
}
