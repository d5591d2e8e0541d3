package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/tracing"
)

const (
	defaultSweepInterval = time.Minute
	defaultReminderLead  = 10 * time.Minute
)

// ReminderSweeperDeps groups the collaborators of ReminderSweeper.
type ReminderSweeperDeps struct {
	Reservations  persistence.ReservationReader
	Reminders     persistence.ReminderRepository
	Resources     ResourceReader
	Members       MemberDirectory
	Notifications NotificationDispatcher
	Interval      time.Duration
	Lead          time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// ReminderSweeper periodically reminds members about confirmed reservations
// that start soon, end soon or have just ended.
type ReminderSweeper struct {
	reservations  persistence.ReservationReader
	reminders     persistence.ReminderRepository
	resources     ResourceReader
	members       MemberDirectory
	notifications NotificationDispatcher
	interval      time.Duration
	lead          time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// SweepResult counts the reminders sent by one pass.
type SweepResult struct {
	StartSoon     int
	EndSoon       int
	ReturnPending int
}

// Total returns the number of reminders sent.
func (r SweepResult) Total() int {
	return r.StartSoon + r.EndSoon + r.ReturnPending
}

// NewReminderSweeper constructs a sweeper.
func NewReminderSweeper(deps ReminderSweeperDeps) *ReminderSweeper {
	if deps.Interval <= 0 {
		deps.Interval = defaultSweepInterval
	}
	if deps.Lead <= 0 {
		deps.Lead = defaultReminderLead
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ReminderSweeper{
		reservations:  deps.Reservations,
		reminders:     deps.Reminders,
		resources:     deps.Resources,
		members:       deps.Members,
		notifications: deps.Notifications,
		interval:      deps.Interval,
		lead:          deps.Lead,
		now:           deps.Now,
		logger:        defaultLogger(deps.Logger),
	}
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *ReminderSweeper) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("ReminderSweeper is nil")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "reminder sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single pass. Each reservation is reminded at most once per kind.
func (s *ReminderSweeper) SweepOnce(ctx context.Context) (result SweepResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReminderSweeper is nil")
		return
	}

	ctx, end := tracing.StartSegment(ctx, "reminder-sweep")
	defer func() { end(err) }()

	logger := serviceLogger(ctx, s.logger, "ReminderSweeper", "SweepOnce")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reminder sweep incomplete", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.Total() > 0 {
			logger.InfoContext(ctx, "reminders sent",
				"start_soon", result.StartSoon,
				"end_soon", result.EndSoon,
				"return_pending", result.ReturnPending,
			)
		}
	}()

	now := s.now().UTC().Truncate(time.Second)
	horizon := now.Add(s.lead)
	recent := now.Add(-s.lead)
	confirmed := []reservation.Status{reservation.StatusConfirmed}

	passes := []struct {
		kind   reservation.ReminderKind
		filter persistence.ReservationFilter
		count  *int
	}{
		{
			kind:   reservation.ReminderStartSoon,
			filter: persistence.ReservationFilter{Statuses: confirmed, StartsFrom: &now, StartsUntil: &horizon},
			count:  &result.StartSoon,
		},
		{
			kind:   reservation.ReminderEndSoon,
			filter: persistence.ReservationFilter{Statuses: confirmed, EndsFrom: &now, EndsUntil: &horizon},
			count:  &result.EndSoon,
		},
		{
			kind:   reservation.ReminderReturnPending,
			filter: persistence.ReservationFilter{Statuses: confirmed, EndsFrom: &recent, EndsUntil: &now},
			count:  &result.ReturnPending,
		},
	}

	var errs []error
	for _, pass := range passes {
		sent, passErr := s.sweep(ctx, logger, now, pass.kind, pass.filter)
		*pass.count = sent
		if passErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pass.kind, passErr))
		}
	}
	if len(errs) > 0 {
		err = mapStoreError(errors.Join(errs...))
	}
	return
}

func (s *ReminderSweeper) sweep(ctx context.Context, logger *slog.Logger, now time.Time, kind reservation.ReminderKind, filter persistence.ReservationFilter) (int, error) {
	due, err := s.reservations.ListReservations(ctx, filter)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range due {
		fresh, err := s.reminders.MarkReminded(ctx, r.ID, kind, now)
		if err != nil {
			return sent, err
		}
		if !fresh {
			continue
		}

		resource, err := s.resources.GetResource(ctx, r.ResourceID)
		if err != nil {
			logger.WarnContext(ctx, "failed to resolve resource for reminder", "reservation_id", r.ID, "error", err)
			continue
		}
		recipients := s.recipients(ctx, logger, kind, r)
		if len(recipients) > 0 && s.notifications != nil {
			s.notifications.Dispatch(ctx, recipients, newMessage(kind.Template(), r, resource))
		}
		sent++
	}
	return sent, nil
}

// recipients returns the requester, plus the invitees unless the reminder is a
// return prompt.
func (s *ReminderSweeper) recipients(ctx context.Context, logger *slog.Logger, kind reservation.ReminderKind, r persistence.Reservation) []persistence.ClubMember {
	var out []persistence.ClubMember
	requester, err := s.members.GetClubMember(ctx, r.ClubMemberID)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve requester", "reservation_id", r.ID, "error", err)
	} else {
		out = append(out, requester)
	}
	if kind == reservation.ReminderReturnPending {
		return out
	}
	invitees, err := s.reservations.ListInvitees(ctx, r.ID)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve invitees", "reservation_id", r.ID, "error", err)
		return out
	}
	return append(out, invitees...)
}
