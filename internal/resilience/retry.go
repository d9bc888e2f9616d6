package resilience

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/prilive-com/mailshield/fault"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts    int           // Total tries including the first (1 = no retries)
	BaseDelay      time.Duration // Delay before the first retry
	MaxDelay       time.Duration // Upper bound for any computed delay
	JitterFraction float64       // Jitter factor (0.0-1.0)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.2,
	}
}

// RetryContext is the retry state of one logical call. It is owned by a
// single retry loop and must not be shared.
type RetryContext struct {
	Attempt        int // 1-based number of the attempt that just ran
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// NewRetryContext starts a retry context at attempt 1.
func NewRetryContext(cfg RetryConfig) *RetryContext {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryContext{
		Attempt:        1,
		MaxAttempts:    maxAttempts,
		BaseDelay:      cfg.BaseDelay,
		MaxDelay:       cfg.MaxDelay,
		JitterFraction: cfg.JitterFraction,
	}
}

// Action is what the retry loop does next.
type Action uint8

const (
	GiveUp Action = iota
	Retry
)

func (a Action) String() string {
	if a == Retry {
		return "retry"
	}
	return "give_up"
}

// Decision is the outcome of NextDelay. After is meaningful only for Retry.
type Decision struct {
	Action Action
	After  time.Duration
}

// JitterSource returns a uniformly distributed value in [0, 1).
type JitterSource func() float64

// CryptoJitter draws jitter from crypto/rand.
func CryptoJitter() float64 {
	const precision = 1 << 53
	n, err := rand.Int(rand.Reader, big.NewInt(precision))
	if err != nil {
		return 0.5
	}
	return float64(n.Int64()) / precision
}

// RetryPolicy decides whether and when a failed attempt is retried.
type RetryPolicy struct {
	jitter JitterSource
}

// NewRetryPolicy creates a policy. A nil source uses CryptoJitter.
func NewRetryPolicy(jitter JitterSource) *RetryPolicy {
	if jitter == nil {
		jitter = CryptoJitter
	}
	return &RetryPolicy{jitter: jitter}
}

var defaultPolicy = NewRetryPolicy(nil)

// NextDelay applies the default policy.
func NextDelay(rc *RetryContext, f *fault.Failure) Decision {
	return defaultPolicy.NextDelay(rc, f)
}

// NextDelay gives up on non-retryable failures and on the last attempt.
// Otherwise it returns Retry with the remote's RetryAfter when present, or
// a jittered exponential backoff, and advances rc.Attempt.
func (p *RetryPolicy) NextDelay(rc *RetryContext, f *fault.Failure) Decision {
	if f == nil || !f.Retryable || rc.Attempt >= rc.MaxAttempts {
		return Decision{Action: GiveUp}
	}

	after := f.RetryAfter
	if after <= 0 {
		lo, hi := JitterBounds(rc, rc.Attempt)
		r := p.jitter()
		if r < 0 || r >= 1 {
			r = 0.5
		}
		after = lo + time.Duration(float64(hi-lo)*r)
	}

	rc.Attempt++
	return Decision{Action: Retry, After: after}
}

// Backoff returns min(MaxDelay, BaseDelay * 2^(attempt-1)) without jitter.
func Backoff(rc *RetryContext, attempt int) time.Duration {
	if rc.BaseDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	ceiling := maxDelay(rc)
	d := rc.BaseDelay
	for i := 1; i < attempt; i++ {
		if d > ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	return min(d, ceiling)
}

// JitterBounds returns the interval a jittered delay for attempt is drawn
// from: [d*(1-j), d*(1+j)] clamped to [0, MaxDelay].
func JitterBounds(rc *RetryContext, attempt int) (lo, hi time.Duration) {
	d := Backoff(rc, attempt)
	j := min(max(rc.JitterFraction, 0), 1)

	lo = time.Duration(float64(d) * (1 - j))
	hi = min(time.Duration(float64(d)*(1+j)), maxDelay(rc))
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func maxDelay(rc *RetryContext) time.Duration {
	if rc.MaxDelay < rc.BaseDelay {
		return rc.BaseDelay
	}
	return rc.MaxDelay
}
