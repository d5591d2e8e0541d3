package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Dialect captures the per-driver differences the store cares about.
type Dialect struct {
	Name       string
	DriverName string
	// TxOptions is nil for SQLite, whose single connection already serializes writers.
	TxOptions *sql.TxOptions
	configure func(db *sqlx.DB)
	retryable func(err error) bool
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return Dialect{
			Name:       "sqlite",
			DriverName: "sqlite",
			configure: func(db *sqlx.DB) {
				db.SetMaxOpenConns(1)
				db.SetMaxIdleConns(1)
				db.SetConnMaxLifetime(0)
			},
			retryable: sqliteRetryable,
		}, nil
	case "postgres", "postgresql":
		return Dialect{
			Name:       "postgres",
			DriverName: "postgres",
			TxOptions:  &sql.TxOptions{Isolation: sql.LevelSerializable},
			configure:  pooled,
			retryable:  postgresRetryable,
		}, nil
	case "mysql":
		return Dialect{
			Name:       "mysql",
			DriverName: "mysql",
			TxOptions:  &sql.TxOptions{Isolation: sql.LevelSerializable},
			configure:  pooled,
			retryable:  mysqlRetryable,
		}, nil
	}
	return Dialect{}, fmt.Errorf("sqlstore: unsupported database driver %q", name)
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file.
func SQLiteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func pooled(db *sqlx.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)
}

func sqliteRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func postgresRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func mysqlRetryable(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_LOCK_DEADLOCK, ER_LOCK_WAIT_TIMEOUT
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}
