package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/invoker"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MidpointJitter makes retry delays land exactly on the unjittered backoff.
func MidpointJitter() float64 { return 0.5 }

// TestConfig returns a config with no pacing and a breaker that never trips
// during a test.
func TestConfig() invoker.Config {
	cfg := invoker.DefaultConfig()
	cfg.FailureThreshold = 1000
	cfg.Cooldown = time.Hour
	cfg.BulkPacingDelay = 0
	return cfg
}

// NewRetryTestInvoker creates an invoker for testing retry behavior.
// The circuit breaker is configured to never trip.
func NewRetryTestInvoker(t *testing.T, sleeper *FakeSleeper, opts ...invoker.Option) *invoker.Invoker {
	t.Helper()
	return NewTestInvoker(t, TestConfig(), sleeper, opts...)
}

// NewBreakerTestInvoker creates an invoker for testing circuit breaker
// behavior: no retries and a breaker that trips after threshold failures.
func NewBreakerTestInvoker(t *testing.T, threshold uint32, opts ...invoker.Option) *invoker.Invoker {
	t.Helper()

	cfg := TestConfig()
	cfg.MaxAttempts = 1
	cfg.FailureThreshold = threshold
	cfg.Cooldown = 2 * time.Second // Long enough to stay open during test assertions
	return NewTestInvoker(t, cfg, nil, opts...)
}

// NewTestInvoker creates an invoker with a quiet logger, midpoint jitter and,
// when given, a fake sleeper.
func NewTestInvoker(t *testing.T, cfg invoker.Config, sleeper *FakeSleeper, opts ...invoker.Option) *invoker.Invoker {
	t.Helper()

	defaultOpts := []invoker.Option{
		invoker.WithLogger(DiscardLogger()),
		invoker.WithJitter(MidpointJitter),
	}
	if sleeper != nil {
		defaultOpts = append(defaultOpts, invoker.WithSleeper(sleeper))
	}

	inv, err := invoker.New(TestEndpoint, cfg, append(defaultOpts, opts...)...)
	require.NoError(t, err)
	return inv
}
