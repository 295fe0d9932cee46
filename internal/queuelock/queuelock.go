// Package queuelock provides a mutual-exclusion lock that grants ownership in
// strict arrival order. It serializes asynchronous read-modify-write
// sequences, such as progress and statistics updates, that must not
// interleave and must not starve.
package queuelock

import (
	"context"
	"sync"
)

// Lock is a FIFO mutex. The zero value is an unlocked Lock.
//
// Ownership is handed directly from the releasing holder to the longest
// waiting caller; the held flag never drops in between, so a newcomer cannot
// barge ahead of the queue.
type Lock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Acquire blocks until the caller holds the lock or ctx is done. On a
// context error the caller does not hold the lock.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	for i, w := range l.waiters {
		if w == ready {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return ctx.Err()
		}
	}
	l.mu.Unlock()

	// Ownership was handed over while ctx fired; pass it on.
	l.Release()
	return ctx.Err()
}

// Release hands the lock to the next waiter, or unlocks it when nobody waits.
// Releasing an unlocked Lock panics.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		panic("queuelock: release of unlocked lock")
	}
	if len(l.waiters) == 0 {
		l.held = false
		return
	}
	next := l.waiters[0]
	l.waiters[0] = nil
	l.waiters = l.waiters[1:]
	close(next)
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Waiters returns the number of callers queued behind the holder.
func (l *Lock) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// Do runs fn while holding l. The lock is released before fn's error, or a
// panic raised by fn, reaches the caller.
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := WithLock(ctx, l, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithLock runs fn while holding l and returns its result after releasing.
func WithLock[T any](ctx context.Context, l *Lock, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := l.Acquire(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer l.Release()
	return fn(ctx)
}
