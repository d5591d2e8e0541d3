package persistence

import (
	"context"
	"time"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// ReservationFilter narrows reservation queries. Zero fields are ignored.
type ReservationFilter struct {
	ResourceID   string
	ClubMemberID string
	Statuses     []reservation.Status
	// Overlapping keeps reservations sharing any instant with the period.
	Overlapping *scheduler.Period
	StartsFrom  *time.Time
	StartsUntil *time.Time
	EndsFrom    *time.Time
	EndsUntil   *time.Time
}

// MemberRepository exposes members and their club memberships.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	CreateClubAuthority(ctx context.Context, ca ClubAuthority) error
	CreateClubMember(ctx context.Context, cm ClubMember) error
	GetClubMember(ctx context.Context, id string) (ClubMember, error)
	ListClubMembersWithCapability(ctx context.Context, clubID string, capability authority.Capability) ([]ClubMember, error)
	LookupSubject(ctx context.Context, clubMemberID string) (authority.Subject, error)
}

// ResourceRepository stores resources and their administrative locks.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context, clubID string) ([]Resource, error)
	// DeleteResource removes the resource with its locks, reservations, invitees and reminder marks.
	DeleteResource(ctx context.Context, id string) error
	CreateLock(ctx context.Context, lock Lock) error
	GetLock(ctx context.Context, id string) (Lock, error)
	ListLocks(ctx context.Context, resourceID string) ([]Lock, error)
	DeleteLock(ctx context.Context, id string) error
}

// ConflictReader answers overlap queries against locks and active reservations.
type ConflictReader interface {
	// ExistsConflict reports whether any lock or active reservation other than
	// excludeReservationID overlaps period on resourceID.
	ExistsConflict(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) (bool, error)
	ListConflicts(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) ([]scheduler.Conflict, error)
}

// ReservationReader exposes reservation reads outside a transaction.
type ReservationReader interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ListInvitees(ctx context.Context, reservationID string) ([]ClubMember, error)
}

// ReservationTx is the unit of work used for reservation writes.
type ReservationTx interface {
	ConflictReader
	GetReservation(ctx context.Context, id string) (Reservation, error)
	CreateReservation(ctx context.Context, r Reservation) error
	UpdateReservation(ctx context.Context, r Reservation) error
	ReplaceInvitees(ctx context.Context, reservationID string, invitees []ReservationInvitee) error
	ClearReminders(ctx context.Context, reservationID string) error
}

// ReservationRepository runs fn inside a serializable transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type ReservationRepository interface {
	ReservationReader
	ConflictReader
	WithinTx(ctx context.Context, fn func(tx ReservationTx) error) error
}

// ReminderRepository records which reminders were already sent.
type ReminderRepository interface {
	// MarkReminded records the reminder and reports false when it was already recorded.
	MarkReminded(ctx context.Context, reservationID string, kind reservation.ReminderKind, at time.Time) (bool, error)
}
