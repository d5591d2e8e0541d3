package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const versionTableDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version VARCHAR(32) PRIMARY KEY,
	description VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at VARCHAR(40) NOT NULL,
	execution_time_ms BIGINT NOT NULL
)`

type appliedRow struct {
	Version         string `db:"version"`
	Checksum        string `db:"checksum"`
	AppliedAt       string `db:"applied_at"`
	ExecutionTimeMS int64  `db:"execution_time_ms"`
}

// Executor runs migrations against a database.
type Executor struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewExecutor creates an executor for db.
func NewExecutor(db *sqlx.DB) *Executor {
	return &Executor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations if missing.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableDDL); err != nil {
		return NewDatabaseError("", versionTableDDL, "create schema_migrations table", err)
	}
	return nil
}

// Execute runs every statement of m and records it, all in one transaction.
func (e *Executor) Execute(ctx context.Context, m Migration) (err error) {
	statements := SplitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewDatabaseError(m.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = NewDatabaseError(m.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
			return err
		}
	}

	insert := tx.Rebind(`INSERT INTO schema_migrations (version, description, checksum, applied_at, execution_time_ms) VALUES (?, ?, ?, ?, ?)`)
	elapsed := e.now().Sub(started)
	if _, execErr := tx.ExecContext(ctx, insert, m.Version, m.Description, m.Checksum, e.now().UTC().Format(time.RFC3339), elapsed.Milliseconds()); execErr != nil {
		err = NewDatabaseError(m.Version, insert, "record migration", execErr)
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = NewDatabaseError(m.Version, "", "commit transaction", commitErr)
		return err
	}
	return nil
}

// Applied returns the applied migrations in version order.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []appliedRow
	query := `SELECT version, checksum, applied_at, execution_time_ms FROM schema_migrations ORDER BY version`
	if err := e.db.SelectContext(ctx, &rows, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, NewDatabaseError("", query, "get applied versions", err)
	}

	applied := make([]AppliedMigration, 0, len(rows))
	for _, row := range rows {
		appliedAt, _ := time.Parse(time.RFC3339, row.AppliedAt)
		applied = append(applied, AppliedMigration{
			Version:       row.Version,
			AppliedAt:     appliedAt,
			ExecutionTime: time.Duration(row.ExecutionTimeMS) * time.Millisecond,
			Checksum:      row.Checksum,
		})
	}
	return applied, nil
}
