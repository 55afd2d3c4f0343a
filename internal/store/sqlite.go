package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcncl/jsonbrowse/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    expires_at INTEGER NOT NULL DEFAULT 0
);
`

// SQLite stores documents in a single table of a SQLite database.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create database directory", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("failed to ping database", err)
	}
	return newSQLite(db, ttl)
}

// OpenSQLiteMemory creates an in-memory database, mostly for tests.
func OpenSQLiteMemory(ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.NewStorageError("failed to open in-memory database", err)
	}
	// Every connection would get its own empty database.
	db.SetMaxOpenConns(1)
	return newSQLite(db, ttl)
}

func newSQLite(db *sql.DB, ttl time.Duration) (*SQLite, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("failed to run migrations", err)
	}
	return &SQLite{db: db, ttl: ttl}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM documents WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStorageError(fmt.Sprintf("failed to read document %q", key), err)
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return data, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	var expiresAt int64
	if at := expiry(s.ttl); !at.IsZero() {
		expiresAt = at.UnixNano()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = datetime('now')`,
		key, data, expiresAt,
	)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write document %q", key), err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to delete document %q", key), err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE expires_at = 0 OR expires_at > ? ORDER BY key`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return nil, errors.NewStorageError("failed to list documents", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.NewStorageError("failed to scan document key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to list documents", err)
	}
	return keys, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
