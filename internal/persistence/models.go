package persistence

import (
	"time"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// Member is a person known to the system, independent of club membership.
type Member struct {
	ID    string
	Name  string
	Email string
}

// ClubAuthority is a named bundle of capabilities attached to managers of a club.
type ClubAuthority struct {
	ID           string
	ClubID       string
	Name         string
	Capabilities []authority.Capability
}

// ClubMember is a member's participation in one club.
type ClubMember struct {
	ID              string
	ClubID          string
	MemberID        string
	Role            authority.Role
	ClubAuthorityID *string
	Confirmed       bool
}

// Resource is a bookable club asset.
type Resource struct {
	ID        string
	ClubID    string
	Name      string
	CreatedAt time.Time
}

// Lock blocks a resource for a period regardless of reservations.
type Lock struct {
	ID         string
	ResourceID string
	Period     scheduler.Period
	CreatedAt  time.Time
}

// Reservation is a club member's claim on a resource for a period.
type Reservation struct {
	ID           string
	ResourceID   string
	ClubMemberID string
	Title        string
	Usage        *string
	Sharing      bool
	Period       scheduler.Period
	Status       reservation.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReservationInvitee links a club member to a reservation they are invited to.
type ReservationInvitee struct {
	ID            string
	ReservationID string
	ClubMemberID  string
}

// MemberContact is the delivery address of a club member.
type MemberContact struct {
	ClubMemberID string
	MemberID     string
	Name         string
	Email        string
}
