package bulk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/resilience"
	"github.com/prilive-com/mailshield/invoker"
)

type outcome[T any] struct {
	value   T
	failure *fault.Failure
}

// Run drives one invoker.Do call per item through inv and accounts for
// every item. A failed item never stops the others; only an open circuit
// (with abort-on-open) or ctx cancellation leaves items unstarted, and
// those are recorded as failures.
//
// Items start in input order, spaced by the pacing delay, with at most
// the configured concurrency in flight.
func Run[I, T any](ctx context.Context, inv *invoker.Invoker, items []I, opFor func(I) invoker.Operation[T], opts ...Option) *Result[T] {
	s := newSettings(inv, opts)
	start := time.Now()
	runID := uuid.NewString()
	endpoint := inv.Endpoint()

	outcomes := make([]outcome[T], len(items))
	pacer := resilience.NewPacer(s.pacing, s.sleeper)

	var (
		aborted   atomic.Bool
		mu        sync.Mutex
		completed int
	)

	finish := func(i int, f *fault.Failure) {
		if s.recorder != nil {
			s.recorder.RecordItem(endpoint, f)
		}
		if s.progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		completed++
		s.progress(Progress{
			RunID:     runID,
			Index:     i,
			Completed: completed,
			Total:     len(items),
			Failure:   f,
		})
	}

	s.logger.Debug("bulk run started",
		"run_id", runID,
		"endpoint", endpoint,
		"items", len(items),
		"concurrency", s.concurrency,
		"pacing", s.pacing)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	var stopErr error
	next := 0
	for ; next < len(items); next++ {
		if aborted.Load() {
			break
		}
		if stopErr = ctx.Err(); stopErr != nil {
			break
		}
		if stopErr = pacer.Wait(ctx); stopErr != nil {
			break
		}

		i, item := next, items[next]
		g.Go(func() error {
			// The slot may have freed up only after an abort.
			if aborted.Load() {
				outcomes[i].failure = abortedFailure()
				finish(i, outcomes[i].failure)
				return nil
			}

			v, err := invoker.Do(ctx, inv, opFor(item))
			if err == nil {
				outcomes[i].value = v
				finish(i, nil)
				return nil
			}

			f := fault.As(err)
			outcomes[i].failure = f
			switch {
			case f.Kind == fault.RateLimited:
				pacer.Hold(f.RetryAfter)
			case f.IsCircuitOpen() && s.abortOnOpen:
				if aborted.CompareAndSwap(false, true) {
					s.logger.Warn("aborting bulk run, circuit open",
						"run_id", runID,
						"endpoint", endpoint,
						"index", i)
				}
			}
			s.logger.Debug("bulk item failed",
				"run_id", runID,
				"index", i,
				"kind", f.Kind.String(),
				"error", f.Message)
			finish(i, f)
			return nil
		})
	}
	_ = g.Wait()

	// Account for every item that never started.
	if cause := context.Cause(ctx); cause != nil {
		stopErr = cause
	}
	for i := next; i < len(items); i++ {
		var f *fault.Failure
		if aborted.Load() {
			f = abortedFailure()
		} else {
			f = fault.Canceled(stopErr)
		}
		outcomes[i].failure = f
		finish(i, f)
	}

	res := &Result[T]{
		RunID:    runID,
		Aborted:  aborted.Load(),
		Duration: time.Since(start),
	}
	for i, o := range outcomes {
		if o.failure != nil {
			res.Failed = append(res.Failed, ItemFailure{Index: i, Failure: o.failure})
			continue
		}
		res.Succeeded = append(res.Succeeded, Success[T]{Index: i, Value: o.value})
	}

	if s.recorder != nil {
		s.recorder.RecordRun(endpoint, len(res.Succeeded), len(res.Failed), res.Aborted, res.Duration)
	}

	s.logger.Info("bulk run completed",
		"run_id", runID,
		"endpoint", endpoint,
		"total", res.Len(),
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
		"aborted", res.Aborted,
		"success_rate", res.SuccessRate(),
		"duration", res.Duration)

	return res
}
