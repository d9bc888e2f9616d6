// Package invoker runs remote operations with error classification, retry
// with exponential backoff and a per-endpoint circuit breaker.
//
// # Single calls
//
//	inv, err := invoker.New("acumbamail", invoker.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	lists, err := invoker.Do(ctx, inv, func(ctx context.Context) ([]List, error) {
//	    return api.GetLists(ctx)
//	})
//	if f := fault.As(err); f != nil && f.IsCircuitOpen() {
//	    // the endpoint is resting, try later
//	}
//
// # Shared breakers
//
// A Pool hands out one Invoker per endpoint and shares circuit breakers
// between every caller of the same endpoint:
//
//	pool, _ := invoker.NewPool(cfg, invoker.WithLogger(logger))
//	inv, _ := pool.Get("acumbamail")
//
// # Configuration
//
// LoadConfig reads MAILSHIELD_* environment variables:
//
//	MAILSHIELD_MAX_ATTEMPTS       (default 3)
//	MAILSHIELD_BASE_DELAY         (default 500ms)
//	MAILSHIELD_MAX_DELAY          (default 30s)
//	MAILSHIELD_JITTER_FRACTION    (default 0.2)
//	MAILSHIELD_FAILURE_THRESHOLD  (default 5)
//	MAILSHIELD_COOLDOWN           (default 60s)
//	MAILSHIELD_HALF_OPEN_PROBES   (default 1)
//	MAILSHIELD_BULK_CONCURRENCY   (default 1)
//	MAILSHIELD_BULK_PACING_DELAY  (default 200ms)
//	MAILSHIELD_ABORT_ON_OPEN      (default false)
//	MAILSHIELD_RATE_LIMIT_WAIT    (default 2s)
package invoker
