package application

import (
	"time"

	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	ResourceID string
	Title      string
	Usage      *string
	Sharing    bool
	Period     scheduler.Period
	InviteeIDs []string
}

// CreateReservationParams wraps the data required to request a reservation.
type CreateReservationParams struct {
	ClubMemberID string
	Input        ReservationInput
}

// ModifyReservationParams wraps the data required to change a reservation.
// An empty Input.ResourceID keeps the current resource.
type ModifyReservationParams struct {
	ClubMemberID  string
	ReservationID string
	Input         ReservationInput
}

// ReservationDetails is a reservation together with its invitees.
type ReservationDetails struct {
	Reservation persistence.Reservation
	Invitees    []persistence.ClubMember
}

// ListPeriod identifies the range preset requested for reservation listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// ParseListPeriod validates a preset name.
func ParseListPeriod(value string) (ListPeriod, bool) {
	switch p := ListPeriod(value); p {
	case ListPeriodNone, ListPeriodDay, ListPeriodWeek, ListPeriodMonth:
		return p, true
	}
	return ListPeriodNone, false
}

// ListReservationsParams narrows a reservation listing for one resource.
type ListReservationsParams struct {
	ClubMemberID string
	ResourceID   string
	Statuses     []reservation.Status
	// Period selects a preset window around PeriodReference, in the service location.
	Period          ListPeriod
	PeriodReference time.Time
	// From and Until override the preset bounds.
	From  *time.Time
	Until *time.Time
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	ClubID string
	Name   string
}

// CreateResourceParams wraps the data required to register a resource.
type CreateResourceParams struct {
	ClubMemberID string
	Input        ResourceInput
}

// CreateLockParams wraps the data required to block a resource.
type CreateLockParams struct {
	ClubMemberID string
	ResourceID   string
	Period       scheduler.Period
}

// LockResult is a created lock and the active reservations it now overlaps.
type LockResult struct {
	Lock        persistence.Lock
	Overlapping []scheduler.Conflict
}
