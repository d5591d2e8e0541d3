package migration

import "time"

// Migration is one versioned SQL file.
type Migration struct {
	Version     string // numeric prefix, e.g. "0001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state.
type Status struct {
	CurrentVersion    string
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}
