package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoAuth is returned when no authentication is stored
var ErrNoAuth = errors.New("no authentication stored")

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

// ErrNoRollupBuild is returned when the precomputed tables have never been built
var ErrNoRollupBuild = errors.New("no rollup build recorded")

// DB is the data-access object for the training dataset.
// It is constructed once and passed to the services that need it.
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it and its directory if
// necessary, and brings the schema up to date.
func Open(path string) (*DB, error) {
	pragmas := []string{"PRAGMA foreign_keys = ON"}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		// serve and the TUI may hold the same file open.
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000")
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps a :memory: database shared and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return &DB{sqlDB}, nil
}
