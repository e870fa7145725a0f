// Package store keeps backend state that outlives a request: cached values
// such as the composer.phar freshness deadline, and the record of applied
// package database updates.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// FreshUntilKey is the cache key holding the self-update freshness deadline.
const FreshUntilKey = "composer.fresh_until"

// Store wraps the SQLite state database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the state database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	const schema = `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS database_updates (
		file TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached value for key. Expired entries are reported as
// missing.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value   string
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires FROM cache WHERE key = ?`, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache %s: %w", key, err)
	}
	if expires != 0 && time.Now().Unix() >= expires {
		return "", false, nil
	}
	return value, true, nil
}

// Set stores value under key. A zero ttl never expires.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).Unix()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, expires) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires = excluded.expires`,
		key, value, expires)
	if err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	return nil
}

// FreshUntil returns the recorded freshness deadline of composer.phar.
func (s *Store) FreshUntil(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.Get(ctx, FreshUntilKey)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse freshness deadline: %w", err)
	}
	return t, true, nil
}

// SetFreshUntil records the freshness deadline of composer.phar.
func (s *Store) SetFreshUntil(ctx context.Context, deadline time.Time) error {
	return s.Set(ctx, FreshUntilKey, deadline.UTC().Format(time.RFC3339), 0)
}

// AppliedUpdate is one database update file already run against the database.
type AppliedUpdate struct {
	File      string
	Checksum  string
	AppliedAt time.Time
}

// AppliedUpdates lists applied update files keyed by file.
func (s *Store) AppliedUpdates(ctx context.Context) (map[string]AppliedUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file, checksum, applied_at FROM database_updates`)
	if err != nil {
		return nil, fmt.Errorf("query database updates: %w", err)
	}
	defer rows.Close()

	out := map[string]AppliedUpdate{}
	for rows.Next() {
		var (
			u  AppliedUpdate
			at int64
		)
		if err := rows.Scan(&u.File, &u.Checksum, &at); err != nil {
			return nil, fmt.Errorf("scan database update: %w", err)
		}
		u.AppliedAt = time.Unix(at, 0)
		out[u.File] = u
	}
	return out, rows.Err()
}

// ApplyUpdate runs statements and records file with checksum in one
// transaction. Either both happen or neither does.
func (s *Store) ApplyUpdate(ctx context.Context, file, checksum, statements string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s: %w", file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, statements); err != nil {
		return fmt.Errorf("apply %s: %w", file, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO database_updates (file, checksum, applied_at) VALUES (?, ?, ?)
		ON CONFLICT(file) DO UPDATE SET checksum = excluded.checksum, applied_at = excluded.applied_at`,
		file, checksum, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", file, err)
	}
	return nil
}

// Tables lists the tables created by applied updates.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT IN ('cache', 'database_updates') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
