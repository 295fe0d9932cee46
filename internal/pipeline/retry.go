package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const MaxRetries = 3

// IsRetryable reports whether err is a transient SQLite contention error.
func IsRetryable(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 50 * time.Millisecond
	if base > 2*time.Second {
		base = 2 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// wait sleeps for d or until ctx is done.
var wait = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRetry runs fn until it succeeds, fails permanently, or MaxRetries
// attempts are used up.
func withRetry(ctx context.Context, fn func() error) error {
	return retryWhile(ctx, IsRetryable, fn)
}

func retryWhile(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		if werr := wait(ctx, Backoff(attempt)); werr != nil {
			return werr
		}
	}
	return err
}
