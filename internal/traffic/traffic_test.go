package traffic

import (
	"sync"
	"testing"
	"time"
)

// fakeClock returns a settable clock for deterministic windows.
func fakeClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func TestTracker_Counts(t *testing.T) {
	tr := NewTracker(time.Minute)
	now, clock := fakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	tr.now = clock

	tr.Record(Success)
	tr.Record(Failure)
	*now = now.Add(30 * time.Second)
	tr.Record(Success)
	tr.Record(Denied)

	tests := []struct {
		name   string
		window time.Duration
		want   Counts
	}{
		{"whole window", time.Minute, Counts{Success: 2, Failure: 1, Denied: 1}},
		{"recent only", 10 * time.Second, Counts{Success: 1, Denied: 1}},
		{"empty window", 0, Counts{Success: 1, Denied: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Counts(tt.window); got != tt.want {
				t.Errorf("Counts(%v) = %+v, want %+v", tt.window, got, tt.want)
			}
		})
	}
}

// TestTracker_Prunes verifies outcomes older than the retention are dropped on the next record.
func TestTracker_Prunes(t *testing.T) {
	tr := NewTracker(time.Minute)
	now, clock := fakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	tr.now = clock

	tr.Record(Failure)
	*now = now.Add(2 * time.Minute)
	tr.Record(Success)

	if got := len(tr.times[Failure]); got != 0 {
		t.Errorf("len(failures) = %d after retention, want 0", got)
	}
	if got := tr.Counts(time.Hour); got != (Counts{Success: 1}) {
		t.Errorf("Counts() = %+v, want one success", got)
	}
}

func TestTracker_IgnoresUnknownOutcome(t *testing.T) {
	var tr Tracker
	tr.Record(Outcome(7))
	tr.Record(Outcome(-1))
	if got := tr.Counts(time.Minute).Total(); got != 0 {
		t.Errorf("Total() = %d, want 0", got)
	}
}

func TestTracker_Reset(t *testing.T) {
	var tr Tracker
	tr.Record(Success)
	tr.Record(Denied)
	tr.Reset()
	if got := tr.Counts(time.Minute).Total(); got != 0 {
		t.Errorf("Total() after Reset = %d, want 0", got)
	}
}

func TestCounts_Percentages(t *testing.T) {
	tests := []struct {
		name        string
		c           Counts
		wantFailure float64
		wantDenied  float64
	}{
		{"empty", Counts{}, 0, 0},
		{"all denied", Counts{Denied: 4}, 0, 100},
		{"mixed", Counts{Success: 3, Failure: 1, Denied: 4}, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.FailurePct(); got != tt.wantFailure {
				t.Errorf("FailurePct() = %v, want %v", got, tt.wantFailure)
			}
			if got := tt.c.DeniedPct(); got != tt.wantDenied {
				t.Errorf("DeniedPct() = %v, want %v", got, tt.wantDenied)
			}
		})
	}
}

func TestTracker_Concurrent(t *testing.T) {
	var tr Tracker
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Record(Outcome(i % 3))
			_ = tr.Counts(time.Minute)
		}(i)
	}
	wg.Wait()
	if got := tr.Counts(time.Minute).Total(); got != 50 {
		t.Errorf("Total() = %d, want 50", got)
	}
}
