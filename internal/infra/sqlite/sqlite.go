// Package sqlite is the default blob store: a single key/value table in a
// local SQLite file, with a byte quota that mirrors browser storage limits.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "bst.db"

// DefaultMaxBytes is the storage quota when none is configured.
const DefaultMaxBytes = 5 << 20

// DB wraps the SQLite handle.
type DB struct {
	db       *sql.DB
	maxBytes int
}

// Open creates dir if needed, opens the database inside it and applies
// migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(filepath.Clean(dir), FileName)
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	db := &DB{db: sqlDB, maxBytes: DefaultMaxBytes}
	if err := db.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// SetMaxBytes changes the storage quota. Zero or less disables it.
func (db *DB) SetMaxBytes(n int) {
	db.maxBytes = n
}

// MaxBytes returns the storage quota.
func (db *DB) MaxBytes() int { return db.maxBytes }

// Close closes the database.
func (db *DB) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
