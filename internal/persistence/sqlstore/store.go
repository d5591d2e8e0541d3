// Package sqlstore implements the persistence repositories on database/sql via sqlx.
// SQLite, PostgreSQL and MySQL are supported; timestamps are stored as fixed-width
// UTC strings so range comparisons behave the same on every engine.
package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/persistence/sqlstore/migration"
	"github.com/example/club-reservations/internal/tracing"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Config selects and tunes the database.
type Config struct {
	Driver string
	DSN    string
	Retry  *RetryConfig
	Logger *slog.Logger
}

// Store implements every persistence repository on one database handle.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	retry   RetryConfig
	logger  *slog.Logger
}

var (
	_ persistence.MemberRepository      = (*Store)(nil)
	_ persistence.ResourceRepository    = (*Store)(nil)
	_ persistence.ReservationRepository = (*Store)(nil)
	_ persistence.ReminderRepository    = (*Store)(nil)
)

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dialect.Name == "sqlite" {
		dsn = SQLiteDSN(dsn)
	}

	raw, err := tracing.OpenDB(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect.Name, err)
	}
	db := sqlx.NewDb(raw, dialect.DriverName)
	dialect.configure(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect.Name, err)
	}
	return New(db, dialect, cfg.Retry, cfg.Logger), nil
}

// New wraps an existing handle.
func New(db *sqlx.DB, dialect Dialect, retry *RetryConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	policy := DefaultRetryConfig()
	if retry != nil {
		policy = *retry
	}
	return &Store{db: db, dialect: dialect, retry: policy, logger: logger.With("component", "sqlstore", "dialect", dialect.Name)}
}

// Dialect reports the dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	return migration.NewManager(s.db, files, s.logger).Run(ctx)
}

// WithinTx runs fn in a transaction, retrying when the database aborts it
// with a serialization failure or lock timeout.
func (s *Store) WithinTx(ctx context.Context, fn func(tx persistence.ReservationTx) error) (err error) {
	ctx, end := tracing.StartSubsegment(ctx, "sqlstore.WithinTx")
	defer func() { end(err) }()

	err = withRetry(ctx, s.retry, s.dialect.retryable, func() error {
		return s.runTx(ctx, fn)
	})
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx persistence.ReservationTx) error) error {
	tx, err := s.db.BeginTxx(ctx, s.dialect.TxOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements persistence.ReservationTx on an open transaction.
type txStore struct {
	tx *sqlx.Tx
}

var _ persistence.ReservationTx = (*txStore)(nil)
