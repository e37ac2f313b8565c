// Package storage is the SQLite persistence layer for the claims engine.
//
// One workspace owns one database file. The store opens it in WAL mode with a
// busy timeout so concurrent agent processes serialize on SQLite's
// single-writer lock, runs the schema migrations, and exposes typed CRUD over
// claims, decisions, votes, belief snapshots, and contradictions. Collection
// fields cross this boundary as JSON columns; marshaling lives here and
// nowhere else.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the workspace database handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source. Tests use a logical clock so timestamps
// are deterministic and strictly increasing.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (creating if needed) the workspace database at path, applies the
// connection pragmas, and runs all pending migrations. The returned Store is
// ready for use by every other component; nothing touches the file before the
// migration runner has converged the schema.
func Open(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// A single connection sidesteps table-lock contention between pooled
	// connections inside one process; cross-process writers are serialized by
	// SQLite itself via busy_timeout.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range opts {
		fn(s)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store's current time (injected clock in tests).
func (s *Store) Now() time.Time {
	return s.now()
}

// Ping checks that the database file is reachable and readable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx begins a write transaction. Every multi-statement mutation (vote plus
// derived status change, snapshot plus contradiction inserts) runs inside one
// so partial failure never leaves the store inconsistent.
func (s *Store) Tx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin tx: %w", err)
	}
	return tx, nil
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so query
// helpers can run either standalone or inside a caller-owned transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
