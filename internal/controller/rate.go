package controller

import (
	"sync"
	"time"
)

// DefaultRateWindow is the sliding window over which throughput is
// reported.
const DefaultRateWindow = 15 * time.Minute

// RateTracker reports harvest throughput as completions per minute over a
// sliding window.
type RateTracker struct {
	mu     sync.Mutex
	window time.Duration
	marks  []time.Time
}

// NewRateTracker creates a tracker. A non-positive window uses
// DefaultRateWindow.
func NewRateTracker(window time.Duration) *RateTracker {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateTracker{window: window}
}

// Mark records one completed item at t.
func (r *RateTracker) Mark(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, t)
}

// Rate returns completions per minute within the window ending at now.
func (r *RateTracker) Rate(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	return float64(len(r.marks)) / r.window.Minutes()
}

// pruneLocked drops marks that have aged out of the window.
func (r *RateTracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	kept := r.marks[:0]
	for _, t := range r.marks {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	r.marks = kept
}
