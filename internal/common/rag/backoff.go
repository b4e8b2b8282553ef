package rag

import (
	"context"
	"time"
)

// DefaultBackoffStep is the unit of the linear backoff schedule.
const DefaultBackoffStep = 2 * time.Second

// BackoffDelay returns the wait before retry number retry (0-based): step × (retry + 1).
func BackoffDelay(step time.Duration, retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	return step * time.Duration(retry+1)
}

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
