package http

import (
	"context"
	"sync/atomic"
	"time"
)

// InFlightTracker counts requests currently inside the router so shutdown can
// wait for them after the listener stops accepting.
type InFlightTracker struct {
	count atomic.Int64
}

func (t *InFlightTracker) Increment() { t.count.Add(1) }

func (t *InFlightTracker) Decrement() { t.count.Add(-1) }

func (t *InFlightTracker) Count() int64 { return t.count.Load() }

// WaitForZero polls every checkInterval until the count reaches zero or ctx is done.
func (t *InFlightTracker) WaitForZero(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for t.Count() != 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// inFlight is fed by MetricsMiddleware.
var inFlight = &InFlightTracker{}

// InFlightCount returns the number of requests currently being served.
func InFlightCount() int64 {
	return inFlight.Count()
}

// WaitForInFlight blocks until in-flight requests finish or ctx is done.
// Call before closing the cache.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	return inFlight.WaitForZero(ctx, checkInterval)
}
