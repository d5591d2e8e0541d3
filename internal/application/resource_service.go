package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/scheduler"
)

// ResourceService administers resources and their locks.
type ResourceService struct {
	resources   persistence.ResourceRepository
	conflicts   persistence.ConflictReader
	gate        *authority.Gate
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources persistence.ResourceRepository, conflicts persistence.ConflictReader, gate *authority.Gate, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, conflicts, gate, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources persistence.ResourceRepository, conflicts persistence.ConflictReader, gate *authority.Gate, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		conflicts:   conflicts,
		gate:        gate,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

func (s *ResourceService) requireManagement(ctx context.Context, clubMemberID, clubID string) error {
	if _, err := s.gate.Authorize(ctx, clubMemberID, clubID, authority.RequireCapability(authority.CapabilityResourceManagement)); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// CreateResource registers a bookable resource for a club.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource persistence.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource",
		"club_member_id", params.ClubMemberID,
		"club_id", params.Input.ClubID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	vErr := &ValidationError{}
	name := strings.TrimSpace(params.Input.Name)
	switch {
	case name == "":
		vErr.add("name", "name is required")
	case len(name) > 255:
		vErr.add("name", "name must be at most 255 characters")
	}
	if strings.TrimSpace(params.Input.ClubID) == "" {
		vErr.add("club_id", "club is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.requireManagement(ctx, params.ClubMemberID, params.Input.ClubID); err != nil {
		return
	}

	candidate := persistence.Resource{
		ID:        s.idGenerator(),
		ClubID:    params.Input.ClubID,
		Name:      name,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	if err = s.resources.CreateResource(ctx, candidate); err != nil {
		err = mapStoreError(err)
		return
	}
	resource = candidate
	return
}

// DeleteResource removes a resource with its locks, reservations and their invitees.
func (s *ResourceService) DeleteResource(ctx context.Context, clubMemberID, resourceID string) (err error) {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteResource",
		"club_member_id", clubMemberID,
		"resource_id", resourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource deleted")
	}()

	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return mapStoreError(err)
	}
	if err = s.requireManagement(ctx, clubMemberID, resource.ClubID); err != nil {
		return err
	}
	if err = s.resources.DeleteResource(ctx, resource.ID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListResources returns a club's resources to its confirmed members, ordered by name.
func (s *ResourceService) ListResources(ctx context.Context, clubMemberID, clubID string) (resources []persistence.Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if _, err = s.gate.Member(ctx, clubMemberID, clubID); err != nil {
		err = mapStoreError(err)
		return
	}

	resources, err = s.resources.ListResources(ctx, clubID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	sort.SliceStable(resources, func(i, j int) bool {
		if strings.EqualFold(resources[i].Name, resources[j].Name) {
			return resources[i].ID < resources[j].ID
		}
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
	return
}

// CreateLock blocks a resource for a period. Locks always win: the lock is
// stored even when active reservations overlap it, and those reservations are
// returned for follow-up.
func (s *ResourceService) CreateLock(ctx context.Context, params CreateLockParams) (result LockResult, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateLock",
		"club_member_id", params.ClubMemberID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create lock", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("lock_id", result.Lock.ID, "overlapping", len(result.Overlapping)).InfoContext(ctx, "lock created")
	}()

	var period scheduler.Period
	period, err = normalizePeriod(params.Period)
	if err != nil {
		return
	}

	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = s.requireManagement(ctx, params.ClubMemberID, resource.ClubID); err != nil {
		return
	}

	var existing []scheduler.Conflict
	existing, err = s.conflicts.ListConflicts(ctx, resource.ID, period, "")
	if err != nil {
		err = mapStoreError(err)
		return
	}
	for _, c := range existing {
		if c.Type == scheduler.ConflictTypeReservation {
			result.Overlapping = append(result.Overlapping, c)
		}
	}
	scheduler.SortConflicts(result.Overlapping)

	lock := persistence.Lock{
		ID:         s.idGenerator(),
		ResourceID: resource.ID,
		Period:     period,
		CreatedAt:  s.now().UTC().Truncate(time.Second),
	}
	if err = s.resources.CreateLock(ctx, lock); err != nil {
		err = mapStoreError(err)
		result = LockResult{}
		return
	}
	result.Lock = lock
	return
}

// DeleteLock lifts a lock.
func (s *ResourceService) DeleteLock(ctx context.Context, clubMemberID, lockID string) (err error) {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteLock",
		"club_member_id", clubMemberID,
		"lock_id", lockID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete lock", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "lock deleted")
	}()

	var lock persistence.Lock
	lock, err = s.resources.GetLock(ctx, lockID)
	if err != nil {
		return mapStoreError(err)
	}
	var resource persistence.Resource
	resource, err = s.resources.GetResource(ctx, lock.ResourceID)
	if err != nil {
		return mapStoreError(err)
	}
	if err = s.requireManagement(ctx, clubMemberID, resource.ClubID); err != nil {
		return err
	}
	if err = s.resources.DeleteLock(ctx, lock.ID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListLocks returns a resource's locks to confirmed members of its club.
func (s *ResourceService) ListLocks(ctx context.Context, clubMemberID, resourceID string) (locks []persistence.Lock, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
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

	locks, err = s.resources.ListLocks(ctx, resource.ID)
	if err != nil {
		err = mapStoreError(err)
	}
	return
}
