package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/persistence/sqlstore"
)

var clubCounter uint64

// Club is a seeded club with one member per role and one resource.
type Club struct {
	ID       string
	Admin    persistence.ClubMember
	Manager  persistence.ClubMember
	User     persistence.ClubMember
	Pending  persistence.ClubMember
	Resource persistence.Resource
}

type clubConfig struct {
	id                  string
	resourceName        string
	managerCapabilities []authority.Capability
}

// ClubOption configures SeedClub.
type ClubOption func(*clubConfig)

// WithClubID overrides the generated club ID, which also prefixes every seeded row.
func WithClubID(id string) ClubOption {
	return func(c *clubConfig) {
		c.id = id
	}
}

// WithResourceName overrides the seeded resource name.
func WithResourceName(name string) ClubOption {
	return func(c *clubConfig) {
		c.resourceName = name
	}
}

// WithManagerCapabilities replaces the manager's authority capabilities.
func WithManagerCapabilities(caps ...authority.Capability) ClubOption {
	return func(c *clubConfig) {
		c.managerCapabilities = caps
	}
}

// SeedClub inserts a club with an ADMIN, a MANAGER holding schedule and resource
// management, a USER, an unconfirmed USER and a resource.
func SeedClub(tb testing.TB, store *sqlstore.Store, opts ...ClubOption) Club {
	tb.Helper()

	idx := atomic.AddUint64(&clubCounter, 1)
	cfg := clubConfig{
		id:           fmt.Sprintf("club-%03d", idx),
		resourceName: "Court A",
		managerCapabilities: []authority.Capability{
			authority.CapabilityScheduleManagement,
			authority.CapabilityResourceManagement,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	must := func(err error) {
		tb.Helper()
		if err != nil {
			tb.Fatalf("failed to seed club %s: %v", cfg.id, err)
		}
	}

	authorityID := cfg.id + "-managers"
	must(store.CreateClubAuthority(ctx, persistence.ClubAuthority{
		ID:           authorityID,
		ClubID:       cfg.id,
		Name:         "managers",
		Capabilities: cfg.managerCapabilities,
	}))

	member := func(name string, role authority.Role, confirmed bool, authorityRef *string) persistence.ClubMember {
		memberID := cfg.id + "-m-" + name
		must(store.CreateMember(ctx, persistence.Member{
			ID:    memberID,
			Name:  name,
			Email: fmt.Sprintf("%s.%s@example.com", name, cfg.id),
		}))
		cm := persistence.ClubMember{
			ID:              cfg.id + "-" + name,
			ClubID:          cfg.id,
			MemberID:        memberID,
			Role:            role,
			ClubAuthorityID: authorityRef,
			Confirmed:       confirmed,
		}
		must(store.CreateClubMember(ctx, cm))
		return cm
	}

	club := Club{ID: cfg.id}
	club.Admin = member("admin", authority.RoleAdmin, true, nil)
	club.Manager = member("manager", authority.RoleManager, true, &authorityID)
	club.User = member("user", authority.RoleUser, true, nil)
	club.Pending = member("pending", authority.RoleUser, false, nil)

	club.Resource = persistence.Resource{
		ID:        cfg.id + "-resource",
		ClubID:    cfg.id,
		Name:      cfg.resourceName,
		CreatedAt: ReferenceTime(),
	}
	must(store.CreateResource(ctx, club.Resource))
	return club
}

// AddUser inserts another confirmed USER into the club.
func AddUser(tb testing.TB, store *sqlstore.Store, club Club, name string) persistence.ClubMember {
	tb.Helper()

	ctx := context.Background()
	memberID := club.ID + "-m-" + name
	if err := store.CreateMember(ctx, persistence.Member{ID: memberID, Name: name, Email: fmt.Sprintf("%s.%s@example.com", name, club.ID)}); err != nil {
		tb.Fatalf("failed to create member %s: %v", name, err)
	}
	cm := persistence.ClubMember{
		ID:        club.ID + "-" + name,
		ClubID:    club.ID,
		MemberID:  memberID,
		Role:      authority.RoleUser,
		Confirmed: true,
	}
	if err := store.CreateClubMember(ctx, cm); err != nil {
		tb.Fatalf("failed to create club member %s: %v", name, err)
	}
	return cm
}
