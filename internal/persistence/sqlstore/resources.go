package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/club-reservations/internal/persistence"
)

// CreateResource stores a resource.
func (s *Store) CreateResource(ctx context.Context, resource persistence.Resource) error {
	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO resource (id, club_id, name, created_at) VALUES (:id, :club_id, :name, :created_at)`,
		resourceRow{ID: resource.ID, ClubID: resource.ClubID, Name: resource.Name, CreatedAt: formatTime(resource.CreatedAt)},
	)
	return mapError(err)
}

// GetResource retrieves a resource by ID.
func (s *Store) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	var row resourceRow
	query := s.db.Rebind(`SELECT id, club_id, name, created_at FROM resource WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.db, &row, query, id); err != nil {
		return persistence.Resource{}, mapError(err)
	}
	return row.model()
}

// ListResources returns the resources of a club ordered by name.
func (s *Store) ListResources(ctx context.Context, clubID string) ([]persistence.Resource, error) {
	var rows []resourceRow
	query := s.db.Rebind(`SELECT id, club_id, name, created_at FROM resource WHERE club_id = ? ORDER BY name, id`)
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, clubID); err != nil {
		return nil, mapError(err)
	}
	resources := make([]persistence.Resource, 0, len(rows))
	for _, row := range rows {
		r, err := row.model()
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// DeleteResource removes the resource and everything hanging off it in one transaction.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	return withRetry(ctx, s.retry, s.dialect.retryable, func() error {
		tx, err := s.db.BeginTxx(ctx, s.dialect.TxOptions)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := sqlx.GetContext(ctx, tx, &exists, tx.Rebind(`SELECT COUNT(*) FROM resource WHERE id = ?`), id); err != nil {
			return mapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		statements := []string{
			`DELETE FROM reservation_reminder WHERE reservation_id IN (SELECT id FROM reservation WHERE resource_id = ?)`,
			`DELETE FROM reservation_invitee WHERE reservation_id IN (SELECT id FROM reservation WHERE resource_id = ?)`,
			`DELETE FROM reservation WHERE resource_id = ?`,
			`DELETE FROM resource_lock WHERE resource_id = ?`,
			`DELETE FROM resource WHERE id = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
				return mapError(err)
			}
		}
		return tx.Commit()
	})
}

// CreateLock stores an administrative lock.
func (s *Store) CreateLock(ctx context.Context, lock persistence.Lock) error {
	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO resource_lock (id, resource_id, period_start, period_end, created_at)
		 VALUES (:id, :resource_id, :period_start, :period_end, :created_at)`,
		lockRow{
			ID:          lock.ID,
			ResourceID:  lock.ResourceID,
			PeriodStart: formatTime(lock.Period.Start),
			PeriodEnd:   formatTime(lock.Period.End),
			CreatedAt:   formatTime(lock.CreatedAt),
		},
	)
	return mapError(err)
}

// GetLock retrieves a lock by ID.
func (s *Store) GetLock(ctx context.Context, id string) (persistence.Lock, error) {
	var row lockRow
	query := s.db.Rebind(`SELECT id, resource_id, period_start, period_end, created_at FROM resource_lock WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.db, &row, query, id); err != nil {
		return persistence.Lock{}, mapError(err)
	}
	return row.model()
}

// ListLocks returns the locks of a resource ordered by start.
func (s *Store) ListLocks(ctx context.Context, resourceID string) ([]persistence.Lock, error) {
	var rows []lockRow
	query := s.db.Rebind(`SELECT id, resource_id, period_start, period_end, created_at FROM resource_lock
		WHERE resource_id = ? ORDER BY period_start, id`)
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, resourceID); err != nil {
		return nil, mapError(err)
	}
	locks := make([]persistence.Lock, 0, len(rows))
	for _, row := range rows {
		lock, err := row.model()
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

// DeleteLock removes a lock by ID.
func (s *Store) DeleteLock(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM resource_lock WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
