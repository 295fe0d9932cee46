package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/store"
)

func newTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// 2 + 3 + 5 = 10 words.
	var b blocks.Builder
	b.AddHeading("Two words", 1)
	b.AddParagraph("three words here")
	b.AddParagraph("one two three four five")
	doc := &store.Document{ID: "doc", Format: "html", ContentHash: "h", Blocks: b.Blocks(), TotalWords: 10}
	if err := s.PutDocument(context.Background(), doc); err != nil {
		t.Fatalf("put document: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTracker(s, 1, log), s
}

func TestTracker_GetDefaultsToStart(t *testing.T) {
	tr, _ := newTracker(t)
	v, err := tr.Get(context.Background(), "doc", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.WordCount != 0 || v.Boundary != position.Start {
		t.Errorf("expected start of document, got %+v", v)
	}
	if v.TotalWords != 10 {
		t.Errorf("expected 10 total words, got %d", v.TotalWords)
	}
}

func TestTracker_UnknownDocument(t *testing.T) {
	tr, _ := newTracker(t)
	if _, err := tr.Get(context.Background(), "missing", 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := tr.SetWordCount(context.Background(), "missing", 1, 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTracker_SetRepresentations(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	v, err := tr.SetPacing(ctx, "doc", position.Pacing{BlockIndex: 2, WordIndex: 1}, 0)
	if err != nil {
		t.Fatalf("set pacing: %v", err)
	}
	if v.WordCount != 6 {
		t.Errorf("expected word count 6, got %d", v.WordCount)
	}

	v, err = tr.SetRsvpIndex(ctx, "doc", 2, 3)
	if err != nil {
		t.Fatalf("set rsvp: %v", err)
	}
	if v.WordCount != 6 || v.RsvpIndex != 2 || v.ChunkSize != 3 {
		t.Errorf("expected word 6 at frame 2 of size 3, got %+v", v)
	}

	v, err = tr.Get(ctx, "doc", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Pacing != (position.Pacing{BlockIndex: 2, WordIndex: 1}) {
		t.Errorf("expected pacing {2 1}, got %+v", v.Pacing)
	}
}

func TestTracker_Clamps(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	v, err := tr.SetWordCount(ctx, "doc", 500, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.WordCount != 10 || v.Boundary != position.End {
		t.Errorf("expected clamp to end (10), got %+v", v)
	}

	v, err = tr.Advance(ctx, "doc", -50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.WordCount != 0 {
		t.Errorf("expected clamp to 0, got %d", v.WordCount)
	}
}

func TestTracker_StatsCountForwardMovement(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }

	st, err := tr.Stats(ctx, "doc")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.WordsRead != 0 || st.Sessions != 0 {
		t.Errorf("expected empty stats, got %+v", st)
	}

	mustAdvance := func(delta int) {
		t.Helper()
		if _, err := tr.Advance(ctx, "doc", delta, 0); err != nil {
			t.Fatalf("advance %d: %v", delta, err)
		}
	}
	mustAdvance(4)
	mustAdvance(-2) // backwards does not count
	clock = clock.Add(time.Minute)
	mustAdvance(3)
	clock = clock.Add(2 * time.Hour)
	mustAdvance(1)

	st, err = tr.Stats(ctx, "doc")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.WordsRead != 8 {
		t.Errorf("expected 8 words read, got %d", st.WordsRead)
	}
	if st.Sessions != 2 {
		t.Errorf("expected 2 sessions, got %d", st.Sessions)
	}
}

func TestTracker_ConcurrentAdvances(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Advance(ctx, "doc", 1, 0); err != nil {
				t.Errorf("advance: %v", err)
			}
		}()
	}
	wg.Wait()

	v, err := tr.Get(ctx, "doc", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.WordCount != 8 {
		t.Errorf("expected no lost updates (8), got %d", v.WordCount)
	}
}
