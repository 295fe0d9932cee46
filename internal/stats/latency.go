// Package stats keeps a rolling window of segmentation timings.
package stats

import (
	"slices"
	"sync"
	"time"
)

// Sample is one finished segmentation.
type Sample struct {
	Format   string
	Duration time.Duration
	Blocks   int
	Words    int

	at time.Time
}

// Snapshot aggregates the samples currently inside the window.
type Snapshot struct {
	Count       int            `json:"count"`
	MinMs       int64          `json:"min_ms"`
	MaxMs       int64          `json:"max_ms"`
	AvgMs       float64        `json:"avg_ms"`
	P50Ms       float64        `json:"p50_ms"`
	P95Ms       float64        `json:"p95_ms"`
	P99Ms       float64        `json:"p99_ms"`
	Blocks      int            `json:"blocks"`
	Words       int            `json:"words"`
	WordsPerSec float64        `json:"words_per_sec"`
	ByFormat    map[string]int `json:"by_format"`
}

// Window tracks segmentation samples no older than maxAge.
type Window struct {
	mu      sync.Mutex
	samples []Sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]Sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds a sample. Negative durations count as zero.
func (w *Window) Record(s Sample) {
	s.Duration = max(s.Duration, 0)

	w.mu.Lock()
	defer w.mu.Unlock()

	s.at = w.now()
	w.pruneLocked(s.at)
	w.samples = append(w.samples, s)
}

func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	snap := Snapshot{ByFormat: map[string]int{}}
	if len(w.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(w.samples))
	var (
		sum   int64
		total time.Duration
	)
	for _, s := range w.samples {
		ms := s.Duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		total += s.Duration
		snap.Blocks += s.Blocks
		snap.Words += s.Words
		snap.ByFormat[s.Format]++
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	if total > 0 {
		snap.WordsPerSec = float64(snap.Words) / total.Seconds()
	}
	return snap
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	w.samples = slices.DeleteFunc(w.samples, func(s Sample) bool {
		return s.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
