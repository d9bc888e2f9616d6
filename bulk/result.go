package bulk

import (
	"errors"
	"time"

	"github.com/prilive-com/mailshield/fault"
)

// ErrAborted marks items that were never started because the run was
// halted by an open circuit.
var ErrAborted = errors.New("mailshield: bulk run aborted")

// Success is the value produced for one input item.
type Success[T any] struct {
	Index int
	Value T
}

// ItemFailure is the final failure of one input item.
type ItemFailure struct {
	Index   int
	Failure *fault.Failure
}

// Result is the outcome of a bulk run. Every input index appears in exactly
// one of Succeeded or Failed, each sorted by index.
type Result[T any] struct {
	RunID     string
	Succeeded []Success[T]
	Failed    []ItemFailure
	Aborted   bool
	Duration  time.Duration
}

// Len returns the number of input items.
func (r *Result[T]) Len() int {
	return len(r.Succeeded) + len(r.Failed)
}

// SuccessRate returns the fraction of items that succeeded, in [0, 1].
// An empty run has a rate of 0.
func (r *Result[T]) SuccessRate() float64 {
	n := r.Len()
	if n == 0 {
		return 0
	}
	return float64(len(r.Succeeded)) / float64(n)
}

// Tally counts the failed items per kind.
func (r *Result[T]) Tally() fault.Summary {
	var t fault.Tally
	for _, f := range r.Failed {
		t.Record(f.Failure)
	}
	return t.Snapshot()
}

// FirstFailures returns up to n failures in input order.
func (r *Result[T]) FirstFailures(n int) []ItemFailure {
	if n > len(r.Failed) {
		n = len(r.Failed)
	}
	if n <= 0 {
		return nil
	}
	return r.Failed[:n]
}

// Values returns the successful values in input order.
func (r *Result[T]) Values() []T {
	out := make([]T, len(r.Succeeded))
	for i, s := range r.Succeeded {
		out[i] = s.Value
	}
	return out
}

// abortedFailure is recorded for items left unstarted by an abort.
func abortedFailure() *fault.Failure {
	return &fault.Failure{
		Kind:    fault.Unknown,
		Message: "not started: run aborted after the circuit opened",
		Err:     errors.Join(ErrAborted, fault.ErrCircuitOpen),
	}
}
