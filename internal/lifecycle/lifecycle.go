package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

var (
	shuttingDown atomic.Bool

	reasonMu sync.Mutex
	reason   string
)

// SetShuttingDown sets the draining flag. Health reports shutting-down with
// 503 while it is true. Clearing the flag also clears the recorded reason.
func SetShuttingDown(v bool) {
	reasonMu.Lock()
	defer reasonMu.Unlock()
	if !v {
		reason = ""
	}
	shuttingDown.Store(v)
}

// BeginShutdown marks the process as draining and records why.
func BeginShutdown(why string) {
	reasonMu.Lock()
	defer reasonMu.Unlock()
	reason = why
	shuttingDown.Store(true)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Reason returns what started the shutdown, or "" while serving.
func Reason() string {
	reasonMu.Lock()
	defer reasonMu.Unlock()
	return reason
}

// WaitForSignal blocks until one of sigs arrives or ctx ends, then begins
// shutdown and returns the recorded reason.
func WaitForSignal(ctx context.Context, sigs ...os.Signal) string {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		BeginShutdown(sig.String())
	case <-ctx.Done():
		BeginShutdown("context")
	}
	return Reason()
}
