package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/notify"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
	"github.com/example/club-reservations/internal/slotmutex"
)

const (
	maxTitleLength = 255
	maxUsageLength = 2000
)

// ResourceReader resolves resources to their owning club.
type ResourceReader interface {
	GetResource(ctx context.Context, id string) (persistence.Resource, error)
}

// MemberDirectory resolves notification recipients and invitees.
type MemberDirectory interface {
	GetClubMember(ctx context.Context, id string) (persistence.ClubMember, error)
	ListClubMembersWithCapability(ctx context.Context, clubID string, capability authority.Capability) ([]persistence.ClubMember, error)
}

// NotificationDispatcher hands messages to the messaging collaborator without blocking.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, recipients []persistence.ClubMember, msg notify.Message)
}

// ReservationServiceDeps groups the collaborators of ReservationService.
type ReservationServiceDeps struct {
	Reservations  persistence.ReservationRepository
	Resources     ResourceReader
	Members       MemberDirectory
	Gate          *authority.Gate
	Mutex         *slotmutex.Mutex
	Notifications NotificationDispatcher
	IDGenerator   func() string
	Now           func() time.Time
	// Location anchors listing presets. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// ReservationService orchestrates authorization, the slot mutex, the durable
// conflict check and the state machine for reservations.
type ReservationService struct {
	reservations  persistence.ReservationRepository
	resources     ResourceReader
	members       MemberDirectory
	gate          *authority.Gate
	mutex         *slotmutex.Mutex
	notifications NotificationDispatcher
	idGenerator   func() string
	now           func() time.Time
	location      *time.Location
	logger        *slog.Logger
}

// NewReservationService constructs a reservation service. A nil mutex falls
// back to a process-local one and a nil ID generator issues random UUIDs.
func NewReservationService(deps ReservationServiceDeps) *ReservationService {
	logger := defaultLogger(deps.Logger)
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Mutex == nil {
		deps.Mutex = slotmutex.New(slotmutex.NewMemoryStore(deps.Now), slotmutex.Options{Location: deps.Location, Logger: logger})
	}
	if deps.Gate == nil && deps.Members != nil {
		if lookup, ok := deps.Members.(authority.SubjectLookup); ok {
			deps.Gate = authority.NewGate(lookup, logger)
		}
	}
	return &ReservationService{
		reservations:  deps.Reservations,
		resources:     deps.Resources,
		members:       deps.Members,
		gate:          deps.Gate,
		mutex:         deps.Mutex,
		notifications: deps.Notifications,
		idGenerator:   deps.IDGenerator,
		now:           deps.Now,
		location:      deps.Location,
		logger:        logger,
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation admits a new PENDING reservation and notifies the club's
// schedule managers and the invitees.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (res persistence.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"club_member_id", params.ClubMemberID,
		"resource_id", params.Input.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", res.ID).InfoContext(ctx, "reservation created")
	}()

	var period scheduler.Period
	period, err = normalizePeriod(params.Input.Period)
	if err != nil {
		return
	}
	vErr := validateReservationInput(params.Input)
	if strings.TrimSpace(params.Input.ResourceID) == "" {
		vErr.add("resource_id", "resource is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, params.Input.ResourceID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if _, err = s.gate.Member(ctx, params.ClubMemberID, resource.ClubID); err != nil {
		err = mapStoreError(err)
		return
	}

	var invitees []persistence.ClubMember
	invitees, err = s.resolveInvitees(ctx, resource.ClubID, params.ClubMemberID, params.Input.InviteeIDs)
	if err != nil {
		return
	}

	now := s.now().UTC().Truncate(time.Second)
	candidate := persistence.Reservation{
		ID:           s.idGenerator(),
		ResourceID:   resource.ID,
		ClubMemberID: params.ClubMemberID,
		Title:        strings.TrimSpace(params.Input.Title),
		Usage:        normalizeOptionalString(params.Input.Usage),
		Sharing:      params.Input.Sharing,
		Period:       period,
		Status:       reservation.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.admit(ctx, candidate.ID, resource.ID, period, func(tx persistence.ReservationTx) error {
		if err := tx.CreateReservation(ctx, candidate); err != nil {
			return err
		}
		return tx.ReplaceInvitees(ctx, candidate.ID, s.inviteeRows(candidate.ID, invitees))
	})
	if err != nil {
		return
	}
	res = candidate

	s.dispatch(ctx, s.managers(ctx, logger, resource.ClubID), s.message(reservation.TemplateRequested, res, resource))
	s.dispatch(ctx, invitees, s.message(reservation.TemplateInvited, res, resource))
	return
}

// ApproveReservation confirms a PENDING reservation.
func (s *ReservationService) ApproveReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error) {
	return s.decide(ctx, "ApproveReservation", clubMemberID, reservationID, reservation.EventApprove)
}

// RejectReservation rejects a PENDING reservation.
func (s *ReservationService) RejectReservation(ctx context.Context, clubMemberID, reservationID string) (persistence.Reservation, error) {
	return s.decide(ctx, "RejectReservation", clubMemberID, reservationID, reservation.EventReject)
}

func (s *ReservationService) decide(ctx context.Context, operation, clubMemberID, reservationID string, event reservation.Event) (res persistence.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"club_member_id", clubMemberID,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to "+string(event)+" reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", string(res.Status)).InfoContext(ctx, "reservation "+string(event)+"d")
	}()

	var existing persistence.Reservation
	var resource persistence.Resource
	existing, resource, err = s.load(ctx, reservationID)
	if err != nil {
		return
	}
	if _, err = s.gate.Authorize(ctx, clubMemberID, resource.ClubID, authority.RequireCapability(authority.CapabilityScheduleManagement)); err != nil {
		err = mapStoreError(err)
		return
	}

	res, err = s.transition(ctx, existing.ID, event, nil)
	if err != nil {
		return
	}

	switch event {
	case reservation.EventApprove:
		s.dispatch(ctx, s.requesterAndInvitees(ctx, logger, res), s.message(reservation.TemplateApproved, res, resource))
	case reservation.EventReject:
		s.dispatch(ctx, s.requester(ctx, logger, res), s.message(reservation.TemplateRejected, res, resource))
	}
	return
}

// CancelReservation cancels a PENDING or CONFIRMED reservation on behalf of the
// requester or a schedule manager and frees its hour buckets.
func (s *ReservationService) CancelReservation(ctx context.Context, clubMemberID, reservationID string) (res persistence.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"club_member_id", clubMemberID,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation canceled")
	}()

	var existing persistence.Reservation
	var resource persistence.Resource
	existing, resource, err = s.load(ctx, reservationID)
	if err != nil {
		return
	}
	if err = s.authorizeRequesterOrManager(ctx, clubMemberID, existing, resource.ClubID); err != nil {
		return
	}

	res, err = s.transition(ctx, existing.ID, reservation.EventCancel, nil)
	if err != nil {
		return
	}

	s.release(ctx, logger, res.Period, res.ResourceID, res.ID)
	s.dispatch(ctx, s.requesterAndInvitees(ctx, logger, res), s.message(reservation.TemplateCanceled, res, resource))
	return
}

// ModifyReservation replaces the reservation's details. A new period or
// resource re-runs admission with the reservation itself excluded and sends a
// CONFIRMED reservation back to PENDING.
func (s *ReservationService) ModifyReservation(ctx context.Context, params ModifyReservationParams) (res persistence.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ModifyReservation",
		"club_member_id", params.ClubMemberID,
		"reservation_id", params.ReservationID,
	)
	qualifying := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to modify reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", string(res.Status), "rescheduled", qualifying).InfoContext(ctx, "reservation modified")
	}()

	var period scheduler.Period
	period, err = normalizePeriod(params.Input.Period)
	if err != nil {
		return
	}
	vErr := validateReservationInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing persistence.Reservation
	var resource persistence.Resource
	existing, resource, err = s.load(ctx, params.ReservationID)
	if err != nil {
		return
	}
	if err = s.authorizeRequesterOrManager(ctx, params.ClubMemberID, existing, resource.ClubID); err != nil {
		return
	}

	target := resource
	if id := strings.TrimSpace(params.Input.ResourceID); id != "" && id != resource.ID {
		target, err = s.resources.GetResource(ctx, id)
		if err != nil {
			err = mapStoreError(err)
			return
		}
		if target.ClubID != resource.ClubID {
			v := &ValidationError{}
			v.add("resource_id", "resource belongs to another club")
			err = v
			return
		}
	}

	qualifying = !period.Equal(existing.Period) || target.ID != existing.ResourceID
	event := reservation.EventEdit
	if qualifying {
		event = reservation.EventModify
	}
	if _, err = reservation.Transition(existing.Status, event); err != nil {
		err = mapStoreError(err)
		return
	}

	var invitees []persistence.ClubMember
	invitees, err = s.resolveInvitees(ctx, resource.ClubID, existing.ClubMemberID, params.Input.InviteeIDs)
	if err != nil {
		return
	}

	apply := func(r *persistence.Reservation) {
		r.ResourceID = target.ID
		r.Title = strings.TrimSpace(params.Input.Title)
		r.Usage = normalizeOptionalString(params.Input.Usage)
		r.Sharing = params.Input.Sharing
		r.Period = period
	}
	write := func(tx persistence.ReservationTx) error {
		if err := tx.ReplaceInvitees(ctx, existing.ID, s.inviteeRows(existing.ID, invitees)); err != nil {
			return err
		}
		if qualifying {
			return tx.ClearReminders(ctx, existing.ID)
		}
		return nil
	}

	if qualifying {
		err = s.admit(ctx, existing.ID, target.ID, period, func(tx persistence.ReservationTx) error {
			updated, err := s.transitionTx(ctx, tx, existing.ID, event, apply)
			if err != nil {
				return err
			}
			res = updated
			return write(tx)
		})
	} else {
		err = mapStoreError(s.reservations.WithinTx(ctx, func(tx persistence.ReservationTx) error {
			updated, err := s.transitionTx(ctx, tx, existing.ID, event, apply)
			if err != nil {
				return err
			}
			res = updated
			return write(tx)
		}))
	}
	if err != nil {
		res = persistence.Reservation{}
		return
	}

	if qualifying {
		recipients := append(s.managers(ctx, logger, target.ClubID), s.requesterAndInvitees(ctx, logger, res)...)
		s.dispatch(ctx, recipients, s.message(reservation.TemplateUpdateRequested, res, target))
		return
	}
	s.dispatch(ctx, s.requesterAndInvitees(ctx, logger, res), s.message(reservation.TemplateUpdated, res, target))
	return
}

// GetReservation returns a reservation and its invitees to members of the owning club.
func (s *ReservationService) GetReservation(ctx context.Context, clubMemberID, reservationID string) (details ReservationDetails, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	var existing persistence.Reservation
	var resource persistence.Resource
	existing, resource, err = s.load(ctx, reservationID)
	if err != nil {
		return
	}
	if _, err = s.gate.Member(ctx, clubMemberID, resource.ClubID); err != nil {
		err = mapStoreError(err)
		return
	}

	var invitees []persistence.ClubMember
	invitees, err = s.reservations.ListInvitees(ctx, existing.ID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	details = ReservationDetails{Reservation: existing, Invitees: invitees}
	return
}

// ListReservations lists a resource's reservations, optionally within a preset
// or explicit window.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (list []persistence.Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"club_member_id", params.ClubMemberID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(list)).DebugContext(ctx, "reservations listed")
	}()

	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if _, err = s.gate.Member(ctx, params.ClubMemberID, resource.ClubID); err != nil {
		err = mapStoreError(err)
		return
	}

	filter := persistence.ReservationFilter{
		ResourceID: resource.ID,
		Statuses:   params.Statuses,
	}
	from, until := params.From, params.Until
	if params.Period != ListPeriodNone {
		reference := params.PeriodReference
		if reference.IsZero() {
			reference = s.now()
		}
		start, end := computePeriodRange(params.Period, reference, s.location)
		if from == nil {
			from = &start
		}
		if until == nil {
			until = &end
		}
	}
	switch {
	case from != nil && until != nil:
		window := scheduler.Period{Start: *from, End: *until}
		if err = window.Validate(); err != nil {
			err = mapStoreError(err)
			return
		}
		filter.Overlapping = &window
	case from != nil:
		filter.EndsFrom = from
	case until != nil:
		filter.StartsUntil = until
	}

	list, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	return
}

// ListConflicts answers availability queries: the locks and active
// reservations overlapping period on the resource.
func (s *ReservationService) ListConflicts(ctx context.Context, clubMemberID, resourceID string, period scheduler.Period) (conflicts []scheduler.Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	period, err = normalizePeriod(period)
	if err != nil {
		return
	}
	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, resourceID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if _, err = s.gate.Member(ctx, clubMemberID, resource.ClubID); err != nil {
		err = mapStoreError(err)
		return
	}

	conflicts, err = s.reservations.ListConflicts(ctx, resource.ID, period, "")
	if err != nil {
		err = mapStoreError(err)
		return
	}
	scheduler.SortConflicts(conflicts)
	return
}

// admit takes the hour buckets for owner and runs write after a durable
// conflict check in one transaction. Buckets are released when anything fails.
func (s *ReservationService) admit(ctx context.Context, owner, resourceID string, period scheduler.Period, write func(tx persistence.ReservationTx) error) error {
	acquired, err := s.mutex.Acquire(ctx, period, resourceID, owner)
	if err != nil {
		return newError(ErrStorageFailure, "slot mutex unavailable", err)
	}
	if !acquired {
		return newError(ErrMutexContention, "another booking for this time is in progress", nil)
	}

	err = s.reservations.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		conflict, err := tx.ExistsConflict(ctx, resourceID, period, owner)
		if err != nil {
			return err
		}
		if conflict {
			return persistence.ErrConflict
		}
		return write(tx)
	})
	if err != nil {
		s.release(ctx, s.logger, period, resourceID, owner)
		return mapStoreError(err)
	}
	return nil
}

func (s *ReservationService) release(ctx context.Context, logger *slog.Logger, period scheduler.Period, resourceID, owner string) {
	if err := s.mutex.Release(context.WithoutCancel(ctx), period, resourceID, owner); err != nil {
		logger.WarnContext(ctx, "failed to release slot mutex",
			"resource_id", resourceID,
			"owner", owner,
			"error", err,
		)
	}
}

// transition applies event inside its own transaction.
func (s *ReservationService) transition(ctx context.Context, reservationID string, event reservation.Event, apply func(*persistence.Reservation)) (res persistence.Reservation, err error) {
	err = s.reservations.WithinTx(ctx, func(tx persistence.ReservationTx) error {
		updated, err := s.transitionTx(ctx, tx, reservationID, event, apply)
		if err != nil {
			return err
		}
		res = updated
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, mapStoreError(err)
	}
	return res, nil
}

// transitionTx re-reads the reservation so the status check and the write see
// the same row.
func (s *ReservationService) transitionTx(ctx context.Context, tx persistence.ReservationTx, reservationID string, event reservation.Event, apply func(*persistence.Reservation)) (persistence.Reservation, error) {
	current, err := tx.GetReservation(ctx, reservationID)
	if err != nil {
		return persistence.Reservation{}, err
	}
	next, err := reservation.Transition(current.Status, event)
	if err != nil {
		return persistence.Reservation{}, err
	}
	updated := current
	if apply != nil {
		apply(&updated)
	}
	updated.Status = next
	updated.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if err := tx.UpdateReservation(ctx, updated); err != nil {
		return persistence.Reservation{}, err
	}
	return updated, nil
}

func (s *ReservationService) load(ctx context.Context, reservationID string) (persistence.Reservation, persistence.Resource, error) {
	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return persistence.Reservation{}, persistence.Resource{}, mapStoreError(err)
	}
	resource, err := s.resources.GetResource(ctx, existing.ResourceID)
	if err != nil {
		return persistence.Reservation{}, persistence.Resource{}, mapStoreError(err)
	}
	return existing, resource, nil
}

func (s *ReservationService) authorizeRequesterOrManager(ctx context.Context, clubMemberID string, r persistence.Reservation, clubID string) error {
	subject, err := s.gate.Member(ctx, clubMemberID, clubID)
	if err != nil {
		return mapStoreError(err)
	}
	if subject.ClubMemberID == r.ClubMemberID {
		return nil
	}
	if _, err := s.gate.Authorize(ctx, clubMemberID, clubID, authority.RequireCapability(authority.CapabilityScheduleManagement)); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *ReservationService) resolveInvitees(ctx context.Context, clubID, requesterID string, ids []string) ([]persistence.ClubMember, error) {
	vErr := &ValidationError{}
	seen := make(map[string]struct{}, len(ids))
	invitees := make([]persistence.ClubMember, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || id == requesterID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		member, err := s.members.GetClubMember(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("invitee_ids", fmt.Sprintf("unknown club member %s", id))
				continue
			}
			return nil, mapStoreError(err)
		}
		if member.ClubID != clubID || !member.Confirmed {
			vErr.add("invitee_ids", fmt.Sprintf("%s is not a confirmed member of the club", id))
			continue
		}
		invitees = append(invitees, member)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return invitees, nil
}

func (s *ReservationService) inviteeRows(reservationID string, invitees []persistence.ClubMember) []persistence.ReservationInvitee {
	rows := make([]persistence.ReservationInvitee, 0, len(invitees))
	for _, m := range invitees {
		rows = append(rows, persistence.ReservationInvitee{
			ID:            s.idGenerator(),
			ReservationID: reservationID,
			ClubMemberID:  m.ID,
		})
	}
	return rows
}

func (s *ReservationService) managers(ctx context.Context, logger *slog.Logger, clubID string) []persistence.ClubMember {
	members, err := s.members.ListClubMembersWithCapability(ctx, clubID, authority.CapabilityScheduleManagement)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve schedule managers", "club_id", clubID, "error", err)
		return nil
	}
	return members
}

func (s *ReservationService) requester(ctx context.Context, logger *slog.Logger, r persistence.Reservation) []persistence.ClubMember {
	member, err := s.members.GetClubMember(ctx, r.ClubMemberID)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve requester", "club_member_id", r.ClubMemberID, "error", err)
		return nil
	}
	return []persistence.ClubMember{member}
}

func (s *ReservationService) requesterAndInvitees(ctx context.Context, logger *slog.Logger, r persistence.Reservation) []persistence.ClubMember {
	recipients := s.requester(ctx, logger, r)
	invitees, err := s.reservations.ListInvitees(ctx, r.ID)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve invitees", "reservation_id", r.ID, "error", err)
		return recipients
	}
	return append(recipients, invitees...)
}

func (s *ReservationService) message(template reservation.Template, r persistence.Reservation, resource persistence.Resource) notify.Message {
	return newMessage(template, r, resource)
}

func newMessage(template reservation.Template, r persistence.Reservation, resource persistence.Resource) notify.Message {
	return notify.Message{
		Template:      template,
		ReservationID: r.ID,
		ResourceName:  resource.Name,
		Title:         r.Title,
		Period:        r.Period,
		Status:        r.Status,
	}
}

func (s *ReservationService) dispatch(ctx context.Context, recipients []persistence.ClubMember, msg notify.Message) {
	if s.notifications == nil || len(recipients) == 0 {
		return
	}
	s.notifications.Dispatch(ctx, recipients, msg)
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}

	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if input.Usage != nil && utf8.RuneCountInString(*input.Usage) > maxUsageLength {
		vErr.add("usage", fmt.Sprintf("usage must be at most %d characters", maxUsageLength))
	}

	return vErr
}

// normalizePeriod validates p and converts it to the second-precision UTC form the store keeps.
func normalizePeriod(p scheduler.Period) (scheduler.Period, error) {
	normalized := scheduler.Period{
		Start: p.Start.UTC().Truncate(time.Second),
		End:   p.End.UTC().Truncate(time.Second),
	}
	if err := normalized.Validate(); err != nil {
		return scheduler.Period{}, newError(ErrInvalidPeriod, "start must be before end", err)
	}
	return normalized, nil
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func computePeriodRange(period ListPeriod, reference time.Time, loc *time.Location) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := startOfDay(reference, loc)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := startOfWeek(reference, loc)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := startOfMonth(reference, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	// Monday starts the week; Go numbers Sunday as 0.
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
}
