package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

var reference = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

func hours(start, end int) scheduler.Period {
	return scheduler.Period{Start: reference.Add(time.Duration(start) * time.Hour), End: reference.Add(time.Duration(end) * time.Hour)}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "store.db"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedClub(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	mustNoErr(t, store.CreateMember(ctx, persistence.Member{ID: "m-1", Name: "Aoi", Email: "aoi@example.com"}))
	mustNoErr(t, store.CreateMember(ctx, persistence.Member{ID: "m-2", Name: "Ren", Email: "ren@example.com"}))
	mustNoErr(t, store.CreateMember(ctx, persistence.Member{ID: "m-3", Name: "Sora", Email: "sora@example.com"}))
	mustNoErr(t, store.CreateClubAuthority(ctx, persistence.ClubAuthority{
		ID: "ca-1", ClubID: "club-1", Name: "schedulers",
		Capabilities: []authority.Capability{authority.CapabilityScheduleManagement},
	}))
	authorityID := "ca-1"
	mustNoErr(t, store.CreateClubMember(ctx, persistence.ClubMember{ID: "cm-admin", ClubID: "club-1", MemberID: "m-1", Role: authority.RoleAdmin, Confirmed: true}))
	mustNoErr(t, store.CreateClubMember(ctx, persistence.ClubMember{ID: "cm-manager", ClubID: "club-1", MemberID: "m-2", Role: authority.RoleManager, ClubAuthorityID: &authorityID, Confirmed: true}))
	mustNoErr(t, store.CreateClubMember(ctx, persistence.ClubMember{ID: "cm-user", ClubID: "club-1", MemberID: "m-3", Role: authority.RoleUser, Confirmed: true}))
	mustNoErr(t, store.CreateResource(ctx, persistence.Resource{ID: "res-1", ClubID: "club-1", Name: "Court", CreatedAt: reference}))
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func insertReservation(t *testing.T, store *Store, r persistence.Reservation) {
	t.Helper()
	mustNoErr(t, store.WithinTx(context.Background(), func(tx persistence.ReservationTx) error {
		return tx.CreateReservation(context.Background(), r)
	}))
}

func TestMembersAndSubjects(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedClub(t, store)
	ctx := context.Background()

	subject, err := store.LookupSubject(ctx, "cm-manager")
	mustNoErr(t, err)
	if subject.Role != authority.RoleManager || !subject.Capabilities.Has(authority.CapabilityScheduleManagement) || !subject.Confirmed {
		t.Fatalf("unexpected subject %+v", subject)
	}
	if _, err := store.LookupSubject(ctx, "cm-missing"); !errors.Is(err, authority.ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}

	managers, err := store.ListClubMembersWithCapability(ctx, "club-1", authority.CapabilityScheduleManagement)
	mustNoErr(t, err)
	if len(managers) != 2 || managers[0].ID != "cm-admin" || managers[1].ID != "cm-manager" {
		t.Fatalf("unexpected managers %+v", managers)
	}
	others, err := store.ListClubMembersWithCapability(ctx, "club-1", authority.CapabilityResourceManagement)
	mustNoErr(t, err)
	if len(others) != 1 || others[0].ID != "cm-admin" {
		t.Fatalf("expected only the admin for an ungranted capability, got %+v", others)
	}

	contacts, err := store.ListContacts(ctx, []string{"cm-user", "cm-admin", "cm-ghost"})
	mustNoErr(t, err)
	if len(contacts) != 2 || contacts[0].Email != "aoi@example.com" || contacts[1].Email != "sora@example.com" {
		t.Fatalf("unexpected contacts %+v", contacts)
	}

	err = store.CreateClubMember(ctx, persistence.ClubMember{ID: "cm-dup", ClubID: "club-1", MemberID: "m-3", Role: authority.RoleUser})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second membership, got %v", err)
	}
}

func TestConflictQueries(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedClub(t, store)
	ctx := context.Background()

	mustNoErr(t, store.CreateLock(ctx, persistence.Lock{ID: "lock-1", ResourceID: "res-1", Period: hours(8, 10), CreatedAt: reference}))
	insertReservation(t, store, persistence.Reservation{
		ID: "rsv-confirmed", ResourceID: "res-1", ClubMemberID: "cm-user", Title: "Match",
		Period: hours(13, 15), Status: reservation.StatusConfirmed, CreatedAt: reference, UpdatedAt: reference,
	})
	insertReservation(t, store, persistence.Reservation{
		ID: "rsv-canceled", ResourceID: "res-1", ClubMemberID: "cm-user", Title: "Old",
		Period: hours(16, 18), Status: reservation.StatusCanceled, CreatedAt: reference, UpdatedAt: reference,
	})

	cases := []struct {
		name    string
		period  scheduler.Period
		exclude string
		want    bool
	}{
		{name: "overlaps confirmed", period: hours(14, 16), want: true},
		{name: "adjacent to confirmed", period: hours(15, 16), want: false},
		{name: "ends where confirmed starts", period: hours(11, 13), want: false},
		{name: "inside lock", period: hours(9, 10), want: true},
		{name: "canceled does not block", period: hours(16, 18), want: false},
		{name: "excluded self", period: hours(13, 15), exclude: "rsv-confirmed", want: false},
	}
	for _, tc := range cases {
		got, err := store.ExistsConflict(ctx, "res-1", tc.period, tc.exclude)
		mustNoErr(t, err)
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	conflicts, err := store.ListConflicts(ctx, "res-1", hours(0, 24), "")
	mustNoErr(t, err)
	if len(conflicts) != 2 || conflicts[0].Type != scheduler.ConflictTypeLock || conflicts[1].ID != "rsv-confirmed" {
		t.Fatalf("unexpected conflicts %+v", conflicts)
	}
}

func TestReservationLifecycleRows(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedClub(t, store)
	ctx := context.Background()

	usage := "league"
	original := persistence.Reservation{
		ID: "rsv-1", ResourceID: "res-1", ClubMemberID: "cm-user", Title: "Practice", Usage: &usage, Sharing: true,
		Period: hours(9, 11), Status: reservation.StatusPending, CreatedAt: reference, UpdatedAt: reference,
	}
	mustNoErr(t, store.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		if err := tx.CreateReservation(ctx, original); err != nil {
			return err
		}
		return tx.ReplaceInvitees(ctx, original.ID, []persistence.ReservationInvitee{
			{ID: "inv-1", ReservationID: original.ID, ClubMemberID: "cm-manager"},
		})
	}))

	got, err := store.GetReservation(ctx, "rsv-1")
	mustNoErr(t, err)
	if got.Usage == nil || *got.Usage != "league" || !got.Sharing || !got.Period.Equal(original.Period) {
		t.Fatalf("unexpected reservation %+v", got)
	}

	invitees, err := store.ListInvitees(ctx, "rsv-1")
	mustNoErr(t, err)
	if len(invitees) != 1 || invitees[0].ID != "cm-manager" {
		t.Fatalf("unexpected invitees %+v", invitees)
	}

	got.Status = reservation.StatusConfirmed
	got.UpdatedAt = reference.Add(time.Hour)
	mustNoErr(t, store.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		return tx.UpdateReservation(ctx, got)
	}))

	confirmed, err := store.ListReservations(ctx, persistence.ReservationFilter{
		ResourceID: "res-1",
		Statuses:   []reservation.Status{reservation.StatusConfirmed},
	})
	mustNoErr(t, err)
	if len(confirmed) != 1 || confirmed[0].ID != "rsv-1" {
		t.Fatalf("unexpected filtered reservations %+v", confirmed)
	}

	from := reference.Add(10 * time.Hour)
	until := reference.Add(12 * time.Hour)
	ending, err := store.ListReservations(ctx, persistence.ReservationFilter{EndsFrom: &from, EndsUntil: &until})
	mustNoErr(t, err)
	if len(ending) != 1 {
		t.Fatalf("expected reservation ending within window, got %+v", ending)
	}

	if _, err := store.GetReservation(ctx, "rsv-missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedClub(t, store)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := store.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		if err := tx.CreateReservation(ctx, persistence.Reservation{
			ID: "rsv-rollback", ResourceID: "res-1", ClubMemberID: "cm-user", Title: "x",
			Period: hours(1, 2), Status: reservation.StatusPending, CreatedAt: reference, UpdatedAt: reference,
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, err := store.GetReservation(ctx, "rsv-rollback"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("rolled back reservation must not exist, got %v", err)
	}
}

func TestDeleteResourceCascades(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedClub(t, store)
	ctx := context.Background()

	mustNoErr(t, store.CreateLock(ctx, persistence.Lock{ID: "lock-1", ResourceID: "res-1", Period: hours(8, 10), CreatedAt: reference}))
	insertReservation(t, store, persistence.Reservation{
		ID: "rsv-1", ResourceID: "res-1", ClubMemberID: "cm-user", Title: "Match",
		Period: hours(13, 15), Status: reservation.StatusConfirmed, CreatedAt: reference, UpdatedAt: reference,
	})
	marked, err := store.MarkReminded(ctx, "rsv-1", reservation.ReminderStartSoon, reference)
	mustNoErr(t, err)
	if !marked {
		t.Fatalf("expected first mark to succeed")
	}

	mustNoErr(t, store.DeleteResource(ctx, "res-1"))

	if _, err := store.GetResource(ctx, "res-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected resource to be gone, got %v", err)
	}
	if _, err := store.GetReservation(ctx, "rsv-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected reservation to be gone, got %v", err)
	}
	if locks, _ := store.ListLocks(ctx, "res-1"); len(locks) != 0 {
		t.Fatalf("expected locks to be gone, got %+v", locks)
	}
	if err := store.DeleteResource(ctx, "res-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMarkRemindedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkReminded(ctx, "rsv-1", reservation.ReminderEndSoon, reference)
	mustNoErr(t, err)
	second, err := store.MarkReminded(ctx, "rsv-1", reservation.ReminderEndSoon, reference.Add(time.Minute))
	mustNoErr(t, err)
	other, err := store.MarkReminded(ctx, "rsv-1", reservation.ReminderReturnPending, reference)
	mustNoErr(t, err)

	if !first || second || !other {
		t.Fatalf("unexpected mark results first=%v second=%v other=%v", first, second, other)
	}

	mustNoErr(t, store.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		return tx.ClearReminders(ctx, "rsv-1")
	}))
	again, err := store.MarkReminded(ctx, "rsv-1", reservation.ReminderEndSoon, reference)
	mustNoErr(t, err)
	if !again {
		t.Fatalf("expected mark after clear to succeed")
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "sqlite", "postgres", "postgresql", "mysql"} {
		if _, err := DialectFor(name); err != nil {
			t.Fatalf("DialectFor(%q) returned error: %v", name, err)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if got := SQLiteDSN("/tmp/x.db"); got != "file:/tmp/x.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("unexpected DSN %q", got)
	}
}
