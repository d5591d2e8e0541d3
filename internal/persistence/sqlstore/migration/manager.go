package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Manager applies pending migrations from a file system.
type Manager struct {
	executor *Executor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewManager creates a manager reading migrations from the root of fsys.
func NewManager(db *sqlx.DB, fsys fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: NewExecutor(db),
		fsys:     fsys,
		dir:      ".",
		logger:   logger.With("component", "migration"),
	}
}

// Run executes every pending migration in version order.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.PendingMigrations) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for i, migration := range status.PendingMigrations {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"step", i+1,
			"pending", len(status.PendingMigrations),
		)
		if err := m.executor.Execute(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	last := status.PendingMigrations[len(status.PendingMigrations)-1]
	m.logger.InfoContext(ctx, "migrations applied", "count", len(status.PendingMigrations), "version", last.Version)
	return nil
}

// Status compares available files against schema_migrations.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	available, err := Scan(m.fsys, m.dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[int]struct{}, len(applied))
	status := &Status{AppliedMigrations: applied}
	for _, a := range applied {
		appliedSet[versionNumber(a.Version)] = struct{}{}
		if versionNumber(a.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = a.Version
		}
	}
	for _, migration := range available {
		if _, ok := appliedSet[versionNumber(migration.Version)]; !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
		}
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, migration := range available {
		n := versionNumber(migration.Version)
		if i > 0 && n != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration before version %s", ErrVersionConflict, migration.Version)
		}
		byVersion[n] = migration
	}

	for _, a := range applied {
		migration, ok := byVersion[versionNumber(a.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(a.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
