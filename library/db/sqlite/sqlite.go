// Package sqlite opens the embedded database backing the paper index.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	errors "github.com/Laisky/errors/v2"
	_ "github.com/mattn/go-sqlite3"
)

// DB sqlite db
type DB struct {
	DB *sql.DB
}

// BuildDSN turns a database file path into a sqlite DSN. Paths that
// already carry a memory scheme are passed through untouched so tests
// can use `file::memory:?cache=shared`.
func BuildDSN(path string) string {
	if strings.Contains(path, ":memory:") {
		return path
	}

	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// NewDB opens the sqlite database at path, creating the parent
// directory and the file on first use.
func NewDB(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}

	if !strings.Contains(path, ":memory:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrapf(err, "create db dir %s", dir)
			}
		}
	}

	db, err := sql.Open("sqlite3", BuildDSN(path))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping sqlite")
	}

	// sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn and keeps in-memory databases on one handle.
	db.SetMaxOpenConns(1)

	return &DB{DB: db}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}

	return errors.WithStack(d.DB.Close())
}
