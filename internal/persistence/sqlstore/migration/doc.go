// Package migration applies versioned SQL schema changes.
//
// Migration files are read from an fs.FS and follow the naming convention
// {version}_{description}.sql (e.g. "0001_initial_schema.sql"). Applied versions
// are tracked in a schema_migrations table so each file runs once. Each file
// runs inside its own transaction; statements are separated by semicolons.
//
// Example usage:
//
//	manager := migration.NewManager(db, migrations.FS, logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
