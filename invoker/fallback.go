package invoker

import (
	"context"

	"github.com/prilive-com/mailshield/fault"
)

// Fallback produces a degraded result from the final failure of a call.
type Fallback[T any] func(ctx context.Context, f *fault.Failure) (T, error)

// DoWithFallback runs op like Do and hands any final failure other than a
// caller cancellation to fallback.
func DoWithFallback[T any](ctx context.Context, inv *Invoker, op Operation[T], fallback Fallback[T]) (T, error) {
	v, err := Do(ctx, inv, op)
	if err == nil || fallback == nil {
		return v, err
	}

	f := fault.As(err)
	if f.IsCanceled() {
		return v, err
	}

	inv.logger.Info("using fallback",
		"endpoint", inv.endpoint,
		"kind", f.Kind.String(),
		"circuit_open", f.IsCircuitOpen())
	return fallback(ctx, f)
}
