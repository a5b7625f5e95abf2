package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one dashboard action for health accounting.
type Outcome int

const (
	// Success is a refresh that completed.
	Success Outcome = iota
	// Failure is a refresh the dashboard could not complete: upstream or storage trouble.
	Failure
	// Denied is an action rejected by the rate limiter.
	Denied
)

const defaultRetention = 5 * time.Minute

// Counts summarizes outcomes inside a window.
type Counts struct {
	Success int
	Failure int
	Denied  int
}

// Total returns every outcome in the window, denials included.
func (c Counts) Total() int {
	return c.Success + c.Failure + c.Denied
}

// FailurePct returns failures as a percentage of completed actions (denials excluded).
// Zero when nothing completed.
func (c Counts) FailurePct() float64 {
	done := c.Success + c.Failure
	if done == 0 {
		return 0
	}
	return float64(c.Failure) * 100 / float64(done)
}

// DeniedPct returns denials as a percentage of all outcomes. Zero when there were none.
func (c Counts) DeniedPct() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Denied) * 100 / float64(c.Total())
}

// Tracker maintains sliding windows of outcome timestamps.
// The zero value is ready to use with a five minute retention.
type Tracker struct {
	mu        sync.Mutex
	retention time.Duration
	now       func() time.Time
	times     [3][]time.Time
}

// NewTracker returns a tracker that keeps outcomes for retention. Windows longer
// than retention see only what is kept.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{retention: retention}
}

// Record stores o at the current time.
func (t *Tracker) Record(o Outcome) {
	if o < Success || o > Denied {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Counts returns the outcomes recorded within window ending now.
func (t *Tracker) Counts(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	return Counts{
		Success: countSince(t.times[Success], cutoff),
		Failure: countSince(t.times[Failure], cutoff),
		Denied:  countSince(t.times[Denied], cutoff),
	}
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// countSince counts timestamps that are not before cutoff.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	retention := t.retention
	if retention <= 0 {
		retention = defaultRetention
	}
	cutoff := now.Add(-retention)
	for k, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[k] = append(times[:0], times[i:]...)
		}
	}
}
