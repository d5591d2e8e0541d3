package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/club-reservations/internal/persistence"
)

// GetReservation retrieves a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return getReservation(ctx, s.db, id)
}

// ListReservations returns reservations matching filter ordered by start.
func (s *Store) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var clauses []string
	var args []any

	if filter.ResourceID != "" {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if filter.ClubMemberID != "" {
		clauses = append(clauses, "club_member_id = ?")
		args = append(args, filter.ClubMemberID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		clauses = append(clauses, "status IN (?)")
		args = append(args, statuses)
	}
	if filter.Overlapping != nil {
		clauses = append(clauses, "period_start < ? AND period_end > ?")
		args = append(args, formatTime(filter.Overlapping.End), formatTime(filter.Overlapping.Start))
	}
	if filter.StartsFrom != nil {
		clauses = append(clauses, "period_start >= ?")
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.StartsUntil != nil {
		clauses = append(clauses, "period_start < ?")
		args = append(args, formatTime(*filter.StartsUntil))
	}
	if filter.EndsFrom != nil {
		clauses = append(clauses, "period_end >= ?")
		args = append(args, formatTime(*filter.EndsFrom))
	}
	if filter.EndsUntil != nil {
		clauses = append(clauses, "period_end < ?")
		args = append(args, formatTime(*filter.EndsUntil))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservation`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY period_start, id`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build reservation query: %w", err)
	}

	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	return reservationModels(rows)
}

// ListInvitees returns the club members invited to a reservation.
func (s *Store) ListInvitees(ctx context.Context, reservationID string) ([]persistence.ClubMember, error) {
	query := s.db.Rebind(`SELECT cm.id, cm.club_id, cm.member_id, cm.role, cm.club_authority_id, cm.is_confirmed
		FROM reservation_invitee ri JOIN club_member cm ON cm.id = ri.club_member_id
		WHERE ri.reservation_id = ? ORDER BY cm.id`)

	var rows []clubMemberRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, reservationID); err != nil {
		return nil, mapError(err)
	}
	members := make([]persistence.ClubMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.model())
	}
	return members, nil
}

func getReservation(ctx context.Context, q sqlx.ExtContext, id string) (persistence.Reservation, error) {
	var row reservationRow
	query := q.Rebind(`SELECT ` + reservationColumns + ` FROM reservation WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return row.model()
}

func (t *txStore) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return getReservation(ctx, t.tx, id)
}

func (t *txStore) CreateReservation(ctx context.Context, r persistence.Reservation) error {
	_, err := sqlx.NamedExecContext(ctx, t.tx,
		`INSERT INTO reservation (`+reservationColumns+`)
		 VALUES (:id, :resource_id, :club_member_id, :title, :usage_note, :sharing,
		         :period_start, :period_end, :status, :created_at, :updated_at)`,
		newReservationRow(r),
	)
	return mapError(err)
}

func (t *txStore) UpdateReservation(ctx context.Context, r persistence.Reservation) error {
	_, err := sqlx.NamedExecContext(ctx, t.tx,
		`UPDATE reservation SET resource_id = :resource_id, title = :title, usage_note = :usage_note,
		        sharing = :sharing, period_start = :period_start, period_end = :period_end,
		        status = :status, updated_at = :updated_at
		 WHERE id = :id`,
		newReservationRow(r),
	)
	return mapError(err)
}

func (t *txStore) ReplaceInvitees(ctx context.Context, reservationID string, invitees []persistence.ReservationInvitee) error {
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM reservation_invitee WHERE reservation_id = ?`), reservationID); err != nil {
		return mapError(err)
	}
	insert := t.tx.Rebind(`INSERT INTO reservation_invitee (id, reservation_id, club_member_id) VALUES (?, ?, ?)`)
	for _, invitee := range invitees {
		if _, err := t.tx.ExecContext(ctx, insert, invitee.ID, reservationID, invitee.ClubMemberID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (t *txStore) ClearReminders(ctx context.Context, reservationID string) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM reservation_reminder WHERE reservation_id = ?`), reservationID)
	return mapError(err)
}
