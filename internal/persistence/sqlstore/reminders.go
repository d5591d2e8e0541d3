package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
)

// MarkReminded records a sent reminder; the primary key makes it idempotent.
func (s *Store) MarkReminded(ctx context.Context, reservationID string, kind reservation.ReminderKind, at time.Time) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO reservation_reminder (reservation_id, kind, notified_at) VALUES (?, ?, ?)`),
		reservationID, string(kind), formatTime(at),
	)
	if err == nil {
		return true, nil
	}
	if err = mapError(err); errors.Is(err, persistence.ErrDuplicate) {
		return false, nil
	}
	return false, err
}
