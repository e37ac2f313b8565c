package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

// SQLite primary result codes that indicate transient lock contention.
const (
	codeBusy   = 5 // SQLITE_BUSY: another connection holds the write lock
	codeLocked = 6 // SQLITE_LOCKED: a conflicting lock within this connection
)

// isRetriable returns true for errors that indicate transient write
// contention on the single-writer store.
func isRetriable(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == codeBusy || code == codeLocked
	}
	// The driver sometimes surfaces lock errors from intermediate layers as
	// plain strings.
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// WithRetry executes fn, retrying up to maxRetries times on busy/locked
// errors. Retries use jittered exponential backoff starting at baseDelay.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !isRetriable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		jitter := time.Duration(rand.Int64N(int64(baseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
		baseDelay *= 2
	}
	return err
}
