package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// Step is one scripted outcome of a Spy.
type Step[T any] struct {
	Value T
	Err   error
}

// Ok scripts a successful call.
func Ok[T any](v T) Step[T] { return Step[T]{Value: v} }

// Fail scripts a failed call.
func Fail[T any](err error) Step[T] { return Step[T]{Err: err} }

// Spy is a scripted remote operation that counts its invocations. Once the
// script runs out the last step repeats.
type Spy[T any] struct {
	calls atomic.Int32

	mu    sync.Mutex
	steps []Step[T]
	next  int

	// Block, when set, is received from before each call returns.
	Block chan struct{}
}

// NewSpy creates a spy that plays steps in order.
func NewSpy[T any](steps ...Step[T]) *Spy[T] {
	return &Spy[T]{steps: steps}
}

// Call implements the operation signature expected by invoker.Do.
func (s *Spy[T]) Call(ctx context.Context) (T, error) {
	s.calls.Add(1)

	s.mu.Lock()
	var step Step[T]
	if len(s.steps) > 0 {
		step = s.steps[min(s.next, len(s.steps)-1)]
		s.next++
	}
	s.mu.Unlock()

	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	return step.Value, step.Err
}

// Calls returns how many times the operation ran.
func (s *Spy[T]) Calls() int {
	return int(s.calls.Load())
}
