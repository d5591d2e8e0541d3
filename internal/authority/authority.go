// Package authority decides whether a club member may perform a privileged action.
package authority

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDenied is returned when a subject does not satisfy a requirement.
	ErrDenied = errors.New("authority: denied")
	// ErrUnknownMember is returned by lookups when the club member does not exist.
	ErrUnknownMember = errors.New("authority: unknown club member")
	// ErrInvalidRequirement is returned for a requirement naming neither or both of role and capability.
	ErrInvalidRequirement = errors.New("authority: invalid requirement")
)

// Role is the membership role of a club member.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole normalises s into a known role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("authority: unknown role %q", s)
}

// Capability is a fine-grained permission tag granted through a club authority.
type Capability string

const (
	CapabilityScheduleManagement Capability = "SCHEDULE_MANAGEMENT"
	CapabilityResourceManagement Capability = "RESOURCE_MANAGEMENT"
	CapabilityMemberManagement   Capability = "MEMBER_MANAGEMENT"
	CapabilityClubManagement     Capability = "CLUB_MANAGEMENT"
)

// ParseCapability normalises s into a known capability.
func ParseCapability(s string) (Capability, error) {
	switch c := Capability(strings.ToUpper(strings.TrimSpace(s))); c {
	case CapabilityScheduleManagement, CapabilityResourceManagement, CapabilityMemberManagement, CapabilityClubManagement:
		return c, nil
	}
	return "", fmt.Errorf("authority: unknown capability %q", s)
}

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from caps.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Slice returns the capabilities in sorted order.
func (s CapabilitySet) Slice() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Requirement declares what an operation needs: a role or a capability, never both.
type Requirement struct {
	Role       Role
	Capability Capability
}

// RequireRole builds a role requirement.
func RequireRole(r Role) Requirement {
	return Requirement{Role: r}
}

// RequireCapability builds a capability requirement.
func RequireCapability(c Capability) Requirement {
	return Requirement{Capability: c}
}

func (r Requirement) String() string {
	if r.Capability != "" {
		return "capability:" + string(r.Capability)
	}
	return "role:" + string(r.Role)
}

// Subject is the resolved identity of a club member within one club.
type Subject struct {
	ClubMemberID string
	ClubID       string
	MemberID     string
	Role         Role
	Capabilities CapabilitySet
	Confirmed    bool
}

// Evaluate checks subject against req.
//
// Capability requirements pass for ADMIN, or for MANAGER holding the capability.
// Role requirements pass for ADMIN or an exact role match.
// Unconfirmed memberships never pass.
func Evaluate(subject Subject, req Requirement) error {
	if (req.Role == "") == (req.Capability == "") {
		return ErrInvalidRequirement
	}
	if !subject.Confirmed {
		return ErrDenied
	}
	if subject.Role == RoleAdmin {
		return nil
	}
	if req.Capability != "" {
		if subject.Role == RoleManager && subject.Capabilities.Has(req.Capability) {
			return nil
		}
		return ErrDenied
	}
	if subject.Role == req.Role {
		return nil
	}
	return ErrDenied
}
