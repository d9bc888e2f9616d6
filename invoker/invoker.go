package invoker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/resilience"
	"github.com/prilive-com/mailshield/internal/scrub"
)

// Operation is one remote call. It must honor ctx and may be invoked
// several times by the retry loop.
type Operation[T any] func(ctx context.Context) (T, error)

// Invoker runs operations against one remote endpoint with classification,
// retry with backoff and a circuit breaker. Safe for concurrent use.
type Invoker struct {
	endpoint string
	cfg      Config

	logger          *slog.Logger
	classify        fault.Classifier
	sleeper         Sleeper
	jitter          JitterSource
	observer        Observer
	secrets         []string
	registry        *Registry
	countsAsFailure func(*fault.Failure) bool

	breaker *resilience.Breaker
	policy  *resilience.RetryPolicy
	tally   fault.Tally
}

// New creates an invoker for endpoint. cfg is validated.
func New(endpoint string, cfg Config, opts ...Option) (*Invoker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, fault.NewConfigError("endpoint", "cannot be empty")
	}

	inv := &Invoker{endpoint: endpoint, cfg: cfg}
	for _, opt := range opts {
		opt(inv)
	}
	inv.applyDefaults()

	if inv.registry == nil {
		inv.registry = resilience.NewRegistry(inv.breakerTemplate())
	}
	inv.breaker = inv.registry.Get(endpoint)
	inv.policy = resilience.NewRetryPolicy(inv.jitter)

	return inv, nil
}

func (inv *Invoker) applyDefaults() {
	if inv.logger == nil {
		inv.logger = slog.Default()
	}
	if inv.classify == nil {
		inv.classify = fault.NewClassifier(inv.cfg.RateLimitWait)
	}
	if inv.sleeper == nil {
		inv.sleeper = resilience.RealSleeper{}
	}
	if inv.observer == nil {
		inv.observer = NopObserver{}
	}
}

// breakerTemplate wires logging and observer notifications into breakers
// created for this invoker's configuration.
func (inv *Invoker) breakerTemplate() resilience.BreakerConfig {
	bc := inv.cfg.BreakerConfig("")
	bc.CountsAsFailure = inv.countsAsFailure
	bc.Logger = inv.logger
	observer := inv.observer
	bc.OnStateChange = func(name string, from, to State) {
		observer.OnStateChange(name, from, to)
	}
	return bc
}

// Endpoint returns the endpoint identity.
func (inv *Invoker) Endpoint() string { return inv.endpoint }

// Config returns the invoker configuration.
func (inv *Invoker) Config() Config { return inv.cfg }

// Logger returns the invoker's logger.
func (inv *Invoker) Logger() *slog.Logger { return inv.logger }

// Sleeper returns the sleeper used for retry waits.
func (inv *Invoker) Sleeper() Sleeper { return inv.sleeper }

// State returns the endpoint's circuit breaker state.
func (inv *Invoker) State() State { return inv.breaker.State() }

// Stats returns the endpoint's circuit breaker statistics.
func (inv *Invoker) Stats() BreakerStats { return inv.breaker.Stats() }

// ErrorSummary returns per-kind counts of the failures this invoker has
// returned to callers. Caller cancellations are not counted.
func (inv *Invoker) ErrorSummary() fault.Summary { return inv.tally.Snapshot() }

// ResetErrorSummary zeroes the failure counts.
func (inv *Invoker) ResetErrorSummary() { inv.tally.Reset() }

// Do runs op through inv. The returned error is always a *fault.Failure.
//
// A call refused by the circuit breaker fails fast without running op and
// without consuming an attempt. Retryable failures are retried per the
// retry policy. A result produced after ctx is done is discarded.
func Do[T any](ctx context.Context, inv *Invoker, op Operation[T]) (T, error) {
	var zero T
	start := time.Now()
	rc := resilience.NewRetryContext(inv.cfg.RetryConfig())

	for {
		if err := ctx.Err(); err != nil {
			return zero, inv.finish(fault.Canceled(err), rc.Attempt-1, start)
		}

		inv.observer.OnAttempt(inv.endpoint, rc.Attempt)

		var value T
		err := inv.breaker.Execute(func() error {
			v, err := op(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fault.Canceled(ctxErr)
			}
			if err != nil {
				return inv.classifyErr(err)
			}
			value = v
			return nil
		})

		if err == nil {
			elapsed := time.Since(start)
			inv.observer.OnOutcome(inv.endpoint, nil, elapsed)
			inv.logger.Debug("call succeeded",
				"endpoint", inv.endpoint,
				"attempts", rc.Attempt,
				"elapsed", elapsed)
			return value, nil
		}

		f := fault.As(err)
		switch {
		case f.IsCircuitOpen():
			return zero, inv.finish(f, rc.Attempt-1, start)
		case f.IsCanceled():
			return zero, inv.finish(f, rc.Attempt, start)
		}

		attempt := rc.Attempt
		decision := inv.policy.NextDelay(rc, f)
		if decision.Action == resilience.GiveUp {
			out := *f
			out.Exhausted = f.Retryable
			return zero, inv.finish(&out, attempt, start)
		}

		inv.logger.Warn("retrying after failure",
			"endpoint", inv.endpoint,
			"attempt", attempt,
			"kind", f.Kind.String(),
			"wait", decision.After,
			"error", f.Message)
		inv.observer.OnRetry(inv.endpoint, f, decision.After)

		if err := inv.sleeper.Sleep(ctx, decision.After); err != nil {
			return zero, inv.finish(fault.Canceled(err), attempt, start)
		}
	}
}

// classifyErr scrubs secrets from a raw failure and classifies it.
func (inv *Invoker) classifyErr(err error) *fault.Failure {
	if len(inv.secrets) > 0 {
		err = scrub.Error(err, inv.secrets...)
	}
	f := inv.classify(err)
	if f == nil {
		f = &fault.Failure{Kind: fault.Unknown, Message: err.Error(), Err: err}
	}
	if len(inv.secrets) > 0 {
		cp := *f
		cp.Message = scrub.String(cp.Message, inv.secrets...)
		f = &cp
	}
	return f
}

// finish stamps the attempt count, records the outcome and returns the
// failure handed to the caller.
func (inv *Invoker) finish(f *fault.Failure, attempts int, start time.Time) *fault.Failure {
	out := *f
	out.Attempts = attempts
	elapsed := time.Since(start)

	switch {
	case out.IsCanceled():
		inv.logger.Debug("call canceled",
			"endpoint", inv.endpoint,
			"attempts", attempts)
	case out.IsCircuitOpen():
		inv.tally.Record(&out)
		inv.logger.Debug("call refused by circuit breaker",
			"endpoint", inv.endpoint)
	default:
		inv.tally.Record(&out)
		inv.logger.Warn("call failed",
			"endpoint", inv.endpoint,
			"kind", out.Kind.String(),
			"attempts", attempts,
			"exhausted", out.Exhausted,
			"error", out.Message)
	}

	inv.observer.OnOutcome(inv.endpoint, &out, elapsed)
	return &out
}
