package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// Two half-open periods overlap when each starts before the other ends.
const existsConflictQuery = `SELECT CASE WHEN EXISTS (
		SELECT 1 FROM resource_lock
		WHERE resource_id = ? AND period_start < ? AND period_end > ?
	) OR EXISTS (
		SELECT 1 FROM reservation
		WHERE resource_id = ? AND id <> ? AND status IN (?, ?)
		  AND period_start < ? AND period_end > ?
	) THEN 1 ELSE 0 END`

func existsConflict(ctx context.Context, q sqlx.ExtContext, resourceID string, period scheduler.Period, excludeID string) (bool, error) {
	start, end := formatTime(period.Start), formatTime(period.End)
	var found int
	err := sqlx.GetContext(ctx, q, &found, q.Rebind(existsConflictQuery),
		resourceID, end, start,
		resourceID, excludeID, string(reservation.StatusPending), string(reservation.StatusConfirmed), end, start,
	)
	if err != nil {
		return false, mapError(err)
	}
	return found == 1, nil
}

func listConflicts(ctx context.Context, q sqlx.ExtContext, resourceID string, period scheduler.Period, excludeID string) ([]scheduler.Conflict, error) {
	start, end := formatTime(period.Start), formatTime(period.End)

	var locks []lockRow
	if err := sqlx.SelectContext(ctx, q, &locks, q.Rebind(`SELECT id, resource_id, period_start, period_end, created_at
		FROM resource_lock WHERE resource_id = ? AND period_start < ? AND period_end > ?`),
		resourceID, end, start,
	); err != nil {
		return nil, mapError(err)
	}

	var reservations []reservationRow
	if err := sqlx.SelectContext(ctx, q, &reservations, q.Rebind(`SELECT `+reservationColumns+`
		FROM reservation WHERE resource_id = ? AND id <> ? AND status IN (?, ?)
		  AND period_start < ? AND period_end > ?`),
		resourceID, excludeID, string(reservation.StatusPending), string(reservation.StatusConfirmed), end, start,
	); err != nil {
		return nil, mapError(err)
	}

	conflicts := make([]scheduler.Conflict, 0, len(locks)+len(reservations))
	for _, row := range locks {
		lock, err := row.model()
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, scheduler.Conflict{
			Type:       scheduler.ConflictTypeLock,
			ID:         lock.ID,
			ResourceID: lock.ResourceID,
			Period:     lock.Period,
		})
	}
	for _, row := range reservations {
		r, err := row.model()
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, scheduler.Conflict{
			Type:       scheduler.ConflictTypeReservation,
			ID:         r.ID,
			ResourceID: r.ResourceID,
			Period:     r.Period,
			Status:     string(r.Status),
		})
	}
	scheduler.SortConflicts(conflicts)
	return conflicts, nil
}

// ExistsConflict implements persistence.ConflictReader outside a transaction.
func (s *Store) ExistsConflict(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) (bool, error) {
	return existsConflict(ctx, s.db, resourceID, period, excludeReservationID)
}

// ListConflicts implements persistence.ConflictReader outside a transaction.
func (s *Store) ListConflicts(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) ([]scheduler.Conflict, error) {
	return listConflicts(ctx, s.db, resourceID, period, excludeReservationID)
}

func (t *txStore) ExistsConflict(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) (bool, error) {
	return existsConflict(ctx, t.tx, resourceID, period, excludeReservationID)
}

func (t *txStore) ListConflicts(ctx context.Context, resourceID string, period scheduler.Period, excludeReservationID string) ([]scheduler.Conflict, error) {
	return listConflicts(ctx, t.tx, resourceID, period, excludeReservationID)
}

var _ persistence.ConflictReader = (*txStore)(nil)
