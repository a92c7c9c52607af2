package chrono

import (
	"context"
	"sync"
	"time"
)

// Sleeper is the interface anything that needs to wait a fixed amount of time should use.
type Sleeper interface {
	// Sleep blocks for `d` or until `ctx` is done, in which case it returns the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardSleeper is the standard implementation of Sleeper using a timer.
type StandardSleeper struct{}

func NewStandardSleeper() StandardSleeper {
	return StandardSleeper{}
}

func (StandardSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordingSleeper returns immediately and remembers every duration it was asked to sleep.
type RecordingSleeper struct {
	mutex sync.Mutex
	calls []time.Duration
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.calls = append(r.calls, d)
	return ctx.Err()
}

// Calls returns a copy of the durations slept so far.
func (r *RecordingSleeper) Calls() []time.Duration {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}
