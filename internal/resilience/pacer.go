package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out successive calls and can be pushed back when the remote
// asks to slow down. Safe for concurrent use.
type Pacer struct {
	limiter *rate.Limiter // nil when pacing is disabled
	sleeper Sleeper

	mu        sync.Mutex
	holdUntil time.Time
}

// NewPacer admits one call per interval. An interval <= 0 disables pacing;
// Hold still applies. A nil sleeper uses RealSleeper.
func NewPacer(interval time.Duration, sleeper Sleeper) *Pacer {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	p := &Pacer{sleeper: sleeper}
	if interval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// Wait blocks until the next call may start or ctx is done. It fails only
// with ctx's error. A pending hold is served by the first Wait that sees it.
func (p *Pacer) Wait(ctx context.Context) error {
	if d := p.takeHold(); d > 0 {
		if err := p.sleeper.Sleep(ctx, d); err != nil {
			return err
		}
	}
	if p.limiter == nil {
		return ctx.Err()
	}
	// Slots follow the limiter's wall clock, so they are slept in real time.
	// A slot past the context's deadline still waits for the deadline itself.
	r := p.limiter.Reserve()
	if err := (RealSleeper{}).Sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// Hold delays every call for at least d from now.
func (p *Pacer) Hold(d time.Duration) {
	if d <= 0 {
		return
	}
	until := time.Now().Add(d)

	p.mu.Lock()
	if until.After(p.holdUntil) {
		p.holdUntil = until
	}
	p.mu.Unlock()
}

func (p *Pacer) takeHold() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.holdUntil.IsZero() {
		return 0
	}
	d := time.Until(p.holdUntil)
	p.holdUntil = time.Time{}
	return max(d, 0)
}
