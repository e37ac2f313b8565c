// Package testutil provides shared test infrastructure for tests that need a
// real SQLite-backed store.
//
// Usage:
//
//	store, clock := testutil.NewStore(t)
//	_ = clock.Advance(time.Second)
//
// Stores open against a file in t.TempDir() with a logical clock injected, so
// timestamps are deterministic and strictly increasing without sleeping.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anamnesos/hivemind-sub005/internal/storage"
)

// Clock is a logical time source. Each Now() call returns a strictly later
// timestamp; Advance jumps it forward explicitly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at a fixed reference instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current logical time, stepping forward one millisecond per
// call so no two records ever share a timestamp.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// NewStore opens a migrated store on a throwaway file with a logical clock.
// The store is closed automatically when the test finishes.
func NewStore(t *testing.T) (*storage.Store, *Clock) {
	t.Helper()

	clock := NewClock()
	path := filepath.Join(t.TempDir(), "hivemind.db")
	store, err := storage.Open(context.Background(), path, TestLogger(), storage.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
