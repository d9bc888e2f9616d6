package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/prilive-com/mailshield/internal/resilience"
)

var _ resilience.Sleeper = (*FakeSleeper)(nil)

// FakeSleeper records backoff and pacing waits instead of sleeping, so
// retry schedules can be asserted exactly.
type FakeSleeper struct {
	// Hook runs before each wait is recorded. Tests use it to cancel the
	// caller in the middle of a backoff.
	Hook func(d time.Duration)

	mu    sync.Mutex
	waits []time.Duration
}

// Sleep records d. A wait on a done context is refused and not recorded.
func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if f.Hook != nil {
		f.Hook(d)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	return nil
}

// Calls returns the recorded waits in order.
func (f *FakeSleeper) Calls() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.waits)
}

// CallCount returns the number of recorded waits.
func (f *FakeSleeper) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waits)
}

// CallAt returns the i-th wait, or 0 when out of range.
func (f *FakeSleeper) CallAt(i int) time.Duration {
	waits := f.Calls()
	if i < 0 || i >= len(waits) {
		return 0
	}
	return waits[i]
}

// LastCall returns the most recent wait, or 0 before any.
func (f *FakeSleeper) LastCall() time.Duration {
	waits := f.Calls()
	if len(waits) == 0 {
		return 0
	}
	return waits[len(waits)-1]
}

// CancelOnSleep returns a FakeSleeper that cancels the caller's context
// on its first wait, simulating a shutdown during backoff.
func CancelOnSleep(cancel context.CancelFunc) *FakeSleeper {
	return &FakeSleeper{Hook: func(time.Duration) { cancel() }}
}
