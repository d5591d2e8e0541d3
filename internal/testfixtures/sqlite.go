package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/club-reservations/internal/persistence/sqlstore"
)

// SQLiteHarness is a migrated store backed by a temporary SQLite file.
type SQLiteHarness struct {
	Store *sqlstore.Store

	cleanup func()
}

// Close releases the database handle.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database. Close is also
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(tb.TempDir(), "reservations.db"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
