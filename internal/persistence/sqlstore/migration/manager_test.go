package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", "file:"+t.TempDir()+"/migrate.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFileName(t *testing.T) {
	t.Parallel()

	version, description, err := ParseFileName("0002_add_reminders.sql")
	if err != nil || version != "0002" || description != "add_reminders" {
		t.Fatalf("unexpected parse result %q %q %v", version, description, err)
	}
	for _, name := range []string{"add.sql", "0001.sql", "0001_init.txt", "v1_init.sql"} {
		if _, _, err := ParseFileName(name); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile for %q, got %v", name, err)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	sql := "-- header\nCREATE TABLE a (id INT);\n\n-- only comment;\nCREATE TABLE b (id INT);\n"
	got := SplitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE TABLE b (id INT)" {
		t.Fatalf("unexpected statement %q", got[1])
	}
}

func TestManagerRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"0001_create_widgets.sql": {Data: []byte("CREATE TABLE widget (id VARCHAR(64) PRIMARY KEY);")},
		"0002_add_index.sql":      {Data: []byte("CREATE INDEX idx_widget_id ON widget (id);")},
		"README.md":               {Data: []byte("ignored")},
	}

	manager := NewManager(db, fsys, quietLogger())
	if err := manager.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "0002" || len(status.PendingMigrations) != 0 || len(status.AppliedMigrations) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := manager.Run(ctx); err != nil {
		t.Fatalf("second Run must be a no-op, got %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO widget (id) VALUES ('w-1')"); err != nil {
		t.Fatalf("expected widget table to exist: %v", err)
	}
}

func TestManagerRejectsBrokenHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("gap in sequence", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"0001_a.sql": {Data: []byte("CREATE TABLE a (id INT);")},
			"0003_c.sql": {Data: []byte("CREATE TABLE c (id INT);")},
		}
		err := NewManager(openTestDB(t), fsys, quietLogger()).Run(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("edited applied file", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		original := fstest.MapFS{"0001_a.sql": {Data: []byte("CREATE TABLE a (id INT);")}}
		if err := NewManager(db, original, quietLogger()).Run(ctx); err != nil {
			t.Fatalf("setup run failed: %v", err)
		}
		edited := fstest.MapFS{"0001_a.sql": {Data: []byte("CREATE TABLE a (id BIGINT);")}}
		err := NewManager(db, edited, quietLogger()).Run(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("failing statement rolls back", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		fsys := fstest.MapFS{"0001_bad.sql": {Data: []byte("CREATE TABLE ok_table (id INT); CREATE TABLEX broken;")}}
		err := NewManager(db, fsys, quietLogger()).Run(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		applied, err := NewExecutor(db).Applied(ctx)
		if err != nil {
			t.Fatalf("Applied returned error: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("failed migration must not be recorded, got %v", applied)
		}
	})
}
