package clock

import (
	"context"
	"time"
)

// Timer is a cancellable one-shot timer
type Timer interface {
	// Stop prevents the timer from firing. It reports whether it stopped the
	// timer before it fired.
	Stop() bool
}

// Clock abstracts wall-clock access so schedulers and batch runners can be
// tested with a fake instead of real timers
type Clock interface {
	Now() time.Time

	// AfterFunc waits for the duration to elapse and then calls f in its own
	// goroutine
	AfterFunc(d time.Duration, f func()) Timer

	// Sleep pauses for d or until ctx is cancelled, returning ctx.Err() in
	// the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// New returns a Clock backed by the time package
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
