// Package sqlite implements the event store on an embedded SQLite file,
// the default backend for single-household deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pawlog/internal/observability"
)

// DB wraps sql.DB opened with the pure-Go SQLite driver.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database file at path.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &DB{DB: db}, nil
}

// isDuplicateKeyError checks if error is a PRIMARY KEY or UNIQUE violation.
func isDuplicateKeyError(err error) bool {
	var sqliteErr *sqlitedrv.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// observe records query latency and errors under the "sqlite" label.
func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery("sqlite", operation, time.Since(start).Seconds(), err)
}
