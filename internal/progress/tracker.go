// Package progress keeps each document's reading position as a single word
// count and derives pacing and RSVP positions from it on demand.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/queuelock"
	"github.com/dgallion1/readpace/internal/store"
)

// SessionGap is the idle time after which forward movement counts as a new
// reading session.
const SessionGap = 30 * time.Minute

// Tracker serializes every progress and stats update through one FIFO lock.
type Tracker struct {
	store     *store.Store
	lock      queuelock.Lock
	chunkSize int
	log       *slog.Logger
	now       func() time.Time
}

// NewTracker returns a Tracker. chunkSize is used when a call passes <= 0.
func NewTracker(s *store.Store, chunkSize int, log *slog.Logger) *Tracker {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Tracker{
		store:     s,
		chunkSize: chunkSize,
		log:       log.With("component", "progress"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tracker) chunk(n int) int {
	if n <= 0 {
		return t.chunkSize
	}
	return n
}

// Get returns the saved position of a document. A document with no saved
// progress is at word 0.
func (t *Tracker) Get(ctx context.Context, docID string, chunkSize int) (position.View, error) {
	return queuelock.WithLock(ctx, &t.lock, func(ctx context.Context) (position.View, error) {
		doc, err := t.store.GetDocument(ctx, docID)
		if err != nil {
			return position.View{}, err
		}
		wc, err := t.savedWordCount(ctx, docID)
		if err != nil {
			return position.View{}, err
		}
		return position.Resolve(doc.Blocks, wc, t.chunk(chunkSize)), nil
	})
}

// SetWordCount moves the reader to wordCount, clamped to [0, total].
func (t *Tracker) SetWordCount(ctx context.Context, docID string, wordCount, chunkSize int) (position.View, error) {
	return t.update(ctx, docID, chunkSize, func([]blocks.Block, int) int { return wordCount })
}

// SetPacing moves the reader to a block/word position.
func (t *Tracker) SetPacing(ctx context.Context, docID string, p position.Pacing, chunkSize int) (position.View, error) {
	return t.update(ctx, docID, chunkSize, func(seq []blocks.Block, _ int) int {
		return position.PacingToWordCount(seq, p.BlockIndex, p.WordIndex)
	})
}

// SetRsvpIndex moves the reader to the first word of an RSVP frame.
func (t *Tracker) SetRsvpIndex(ctx context.Context, docID string, index, chunkSize int) (position.View, error) {
	chunkSize = t.chunk(chunkSize)
	return t.update(ctx, docID, chunkSize, func([]blocks.Block, int) int {
		return position.RsvpIndexToWordCount(index, chunkSize)
	})
}

// Advance moves the reader by delta words; delta may be negative.
func (t *Tracker) Advance(ctx context.Context, docID string, delta, chunkSize int) (position.View, error) {
	return t.update(ctx, docID, chunkSize, func(_ []blocks.Block, current int) int {
		return current + delta
	})
}

// Stats returns reading statistics, zeroed when nothing has been read yet.
func (t *Tracker) Stats(ctx context.Context, docID string) (store.Stats, error) {
	return queuelock.WithLock(ctx, &t.lock, func(ctx context.Context) (store.Stats, error) {
		if _, err := t.store.GetDocument(ctx, docID); err != nil {
			return store.Stats{}, err
		}
		st, err := t.store.GetStats(ctx, docID)
		if errors.Is(err, store.ErrNotFound) {
			return store.Stats{DocID: docID}, nil
		}
		if err != nil {
			return store.Stats{}, err
		}
		return *st, nil
	})
}

func (t *Tracker) update(ctx context.Context, docID string, chunkSize int, target func(seq []blocks.Block, current int) int) (position.View, error) {
	chunkSize = t.chunk(chunkSize)
	return queuelock.WithLock(ctx, &t.lock, func(ctx context.Context) (position.View, error) {
		doc, err := t.store.GetDocument(ctx, docID)
		if err != nil {
			return position.View{}, err
		}
		current, err := t.savedWordCount(ctx, docID)
		if err != nil {
			return position.View{}, err
		}

		total := position.TotalWordCount(doc.Blocks)
		next := min(max(target(doc.Blocks, current), 0), total)

		now := t.now()
		var st *store.Stats
		if next > current {
			if st, err = t.readStats(ctx, docID, next-current, now); err != nil {
				return position.View{}, err
			}
		}
		if err := t.store.SaveReading(ctx, store.Progress{DocID: docID, WordCount: next, UpdatedAt: now}, st); err != nil {
			return position.View{}, err
		}

		t.log.Debug("progress updated", "doc_id", docID, "from", current, "to", next, "total_words", total)
		return position.Resolve(doc.Blocks, next, chunkSize), nil
	})
}

func (t *Tracker) savedWordCount(ctx context.Context, docID string) (int, error) {
	p, err := t.store.GetProgress(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load progress: %w", err)
	}
	return p.WordCount, nil
}

// readStats returns the stats row after words more have been read at now.
func (t *Tracker) readStats(ctx context.Context, docID string, words int, now time.Time) (*store.Stats, error) {
	st, err := t.store.GetStats(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		st = &store.Stats{DocID: docID}
	} else if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if st.Sessions == 0 || now.Sub(st.UpdatedAt) > SessionGap {
		st.Sessions++
	}
	st.WordsRead += words
	st.UpdatedAt = now
	return st, nil
}
