package resilience

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/mailshield/fault"
)

// State is the circuit breaker state.
type State uint8

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // Consecutive failures before opening
	Cooldown         time.Duration // Time spent open before half-open
	HalfOpenProbes   uint32        // Concurrent probes admitted while half-open

	// CountsAsFailure decides which classified failures trip the breaker.
	// Failures it rejects count as successes. Nil uses DefaultCountsAsFailure.
	CountsAsFailure func(*fault.Failure) bool

	// OnStateChange runs under the breaker's lock and must not call back
	// into the breaker.
	OnStateChange func(name string, from, to State)

	Logger *slog.Logger
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
		HalfOpenProbes:   1,
	}
}

// DefaultCountsAsFailure counts every classified failure.
func DefaultCountsAsFailure(f *fault.Failure) bool {
	return f != nil
}

// BreakerStats is a point-in-time view of a breaker. While the breaker is
// not closed, ConsecutiveFailures is the streak that opened it plus any
// failed half-open calls since.
type BreakerStats struct {
	State               State
	ConsecutiveFailures uint32
	OpenedAt            time.Time // zero when the breaker never opened
	ProbeInFlight       bool
}

// Breaker guards one remote endpoint. Caller cancellations are neither
// successes nor failures.
type Breaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker[struct{}]
	openedAt atomic.Int64  // UnixNano, 0 = never
	streak   atomic.Uint32 // failures behind the current open period
}

// NewBreaker creates a breaker with the given configuration.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.HalfOpenProbes == 0 {
		cfg.HalfOpenProbes = 1
	}
	countsAsFailure := cfg.CountsAsFailure
	if countsAsFailure == nil {
		countsAsFailure = DefaultCountsAsFailure
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{name: cfg.Name}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenProbes,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures < cfg.FailureThreshold {
				return false
			}
			b.streak.Store(counts.ConsecutiveFailures)
			return true
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(fault.As(err))
		},
		IsExcluded: func(err error) bool {
			f := fault.As(err)
			return f != nil && f.IsCanceled()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.openedAt.Store(time.Now().UnixNano())
				if from == gobreaker.StateHalfOpen {
					b.streak.Add(1)
				}
			}
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", fromGobreaker(from).String(),
				"to", fromGobreaker(to).String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, fromGobreaker(from), fromGobreaker(to))
			}
		},
	})
	return b
}

// Name returns the endpoint identity.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn if the breaker admits the call and records its outcome.
// A refused call returns a circuit-open *fault.Failure and fn is not run.
func (b *Breaker) Execute(fn func() error) error {
	invoked := false
	_, err := b.cb.Execute(func() (struct{}, error) {
		invoked = true
		return struct{}{}, fn()
	})
	if err != nil && !invoked {
		return fault.CircuitOpen(b.name, err)
	}
	return err
}

// State returns the current state, moving Open to HalfOpen once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Stats returns the current statistics.
func (b *Breaker) Stats() BreakerStats {
	state := b.State()
	counts := b.cb.Counts()

	stats := BreakerStats{
		State:               state,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
	if state != StateClosed {
		// gobreaker starts a fresh generation of counts on every transition.
		stats.ConsecutiveFailures = b.streak.Load()
	}
	if ns := b.openedAt.Load(); ns != 0 {
		stats.OpenedAt = time.Unix(0, ns)
	}
	if state == StateHalfOpen {
		settled := counts.TotalSuccesses + counts.TotalFailures + counts.TotalExclusions
		stats.ProbeInFlight = counts.Requests > settled
	}
	return stats
}
