// internal/browser/humanoid/wait.go
package humanoid

import (
	"context"
	"time"
)

// WaitResult is the outcome of a bounded wait.
type WaitResult int

const (
	WaitSatisfied WaitResult = iota
	WaitTimedOut
	// WaitFailed means the condition itself returned an error.
	WaitFailed
)

func (r WaitResult) String() string {
	switch r {
	case WaitSatisfied:
		return "satisfied"
	case WaitTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// Condition reports whether the awaited state holds. A non-nil error aborts
// the wait.
type Condition func(ctx context.Context) (bool, error)

// WaitFor polls cond every interval until it holds or timeout elapses on
// clock. The condition is always evaluated at least once. Nothing is retried
// after a timeout.
func WaitFor(ctx context.Context, clock Clock, timeout, interval time.Duration, cond Condition) (WaitResult, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := clock.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return WaitFailed, err
		}
		if ok {
			return WaitSatisfied, nil
		}

		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return WaitTimedOut, nil
		}
		step := interval
		if step > remaining {
			step = remaining
		}
		if err := clock.Sleep(ctx, step); err != nil {
			return WaitFailed, err
		}
	}
}
