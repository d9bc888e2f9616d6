package invoker

import (
	"log/slog"

	"github.com/prilive-com/mailshield/fault"
)

// Option configures an Invoker or a Pool.
type Option func(*Invoker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		inv.logger = logger
	}
}

// WithClassifier replaces fault.Classify.
func WithClassifier(c fault.Classifier) Option {
	return func(inv *Invoker) {
		inv.classify = c
	}
}

// WithSleeper sets a custom sleeper for retry timing (useful for testing).
func WithSleeper(s Sleeper) Option {
	return func(inv *Invoker) {
		inv.sleeper = s
	}
}

// WithJitter sets the source of retry jitter (useful for testing).
func WithJitter(j JitterSource) Option {
	return func(inv *Invoker) {
		inv.jitter = j
	}
}

// WithObserver reports invoker events to o.
func WithObserver(o Observer) Option {
	return func(inv *Invoker) {
		inv.observer = o
	}
}

// WithRedactedSecrets removes the given credentials from failure messages.
func WithRedactedSecrets(secrets ...string) Option {
	return func(inv *Invoker) {
		inv.secrets = append(inv.secrets, secrets...)
	}
}

// WithRegistry takes the circuit breaker from reg instead of a private one.
// Invokers sharing a registry and an endpoint share one breaker.
func WithRegistry(reg *Registry) Option {
	return func(inv *Invoker) {
		inv.registry = reg
	}
}

// WithCountsAsFailure decides which failures trip the circuit breaker.
// Only applies to breakers the invoker or pool creates itself.
func WithCountsAsFailure(fn func(*fault.Failure) bool) Option {
	return func(inv *Invoker) {
		inv.countsAsFailure = fn
	}
}
