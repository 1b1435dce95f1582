package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Blob storage
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Write log, one row per accepted or rejected write
		`CREATE TABLE IF NOT EXISTS kv_writes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			key        TEXT NOT NULL,
			bytes      INTEGER NOT NULL,
			rejected   INTEGER NOT NULL DEFAULT 0,
			written_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_writes_key ON kv_writes(key, id)`,
	}
}

// ─── Blob Operations ────────────────────────────────────────────────────────

// Get returns the value stored under key.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key. When the total size of all values would
// exceed the quota the write is rejected with ErrQuotaExceeded and the
// previous value is kept.
func (db *DB) Set(ctx context.Context, key, value string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if db.maxBytes > 0 {
		var others int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB)) + LENGTH(CAST(key AS BLOB))), 0)
			FROM kv WHERE key != ?
		`, key).Scan(&others)
		if err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if total := others + len(key) + len(value); total > db.maxBytes {
			_ = tx.Rollback()
			db.logWrite(ctx, key, len(value), true)
			return fmt.Errorf("set %s (%d of %d bytes): %w", key, total, db.maxBytes, domain.ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv_writes (key, bytes) VALUES (?, ?)`, key, len(value)); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes key. Missing keys are not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Usage returns the bytes currently stored, keys included.
func (db *DB) Usage(ctx context.Context) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB)) + LENGTH(CAST(key AS BLOB))), 0) FROM kv
	`).Scan(&n)
	return n, err
}

// Keys lists stored keys in order.
func (db *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ─── Write Log ──────────────────────────────────────────────────────────────

// Write is one entry of the write log.
type Write struct {
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
	Rejected  bool      `json:"rejected"`
	WrittenAt time.Time `json:"writtenAt"`
}

// logWrite records a rejected write. The caller's transaction must be
// finished since the pool holds a single connection.
func (db *DB) logWrite(ctx context.Context, key string, bytes int, rejected bool) {
	flag := 0
	if rejected {
		flag = 1
	}
	_, _ = db.db.ExecContext(ctx, `INSERT INTO kv_writes (key, bytes, rejected) VALUES (?, ?, ?)`, key, bytes, flag)
}

// RecentWrites returns the newest writes first.
func (db *DB) RecentWrites(ctx context.Context, limit int) ([]Write, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT key, bytes, rejected, written_at
		FROM kv_writes ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Write
	for rows.Next() {
		var w Write
		var rejected int
		var at string
		if err := rows.Scan(&w.Key, &w.Bytes, &rejected, &at); err != nil {
			return nil, err
		}
		w.Rejected = rejected == 1
		w.WrittenAt, _ = time.Parse(time.DateTime, at)
		result = append(result, w)
	}
	return result, rows.Err()
}
