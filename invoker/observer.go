package invoker

import (
	"time"

	"github.com/prilive-com/mailshield/fault"
)

// Observer receives invoker events. Implementations must be safe for
// concurrent use and must not block. OnStateChange runs under the
// breaker's lock and must not call back into the invoker.
type Observer interface {
	// OnAttempt fires before every attempt, including ones the breaker refuses.
	OnAttempt(endpoint string, attempt int)
	// OnRetry fires when a failed attempt will be retried after wait.
	OnRetry(endpoint string, f *fault.Failure, wait time.Duration)
	// OnOutcome fires once per Do call. f is nil on success.
	OnOutcome(endpoint string, f *fault.Failure, elapsed time.Duration)
	// OnStateChange fires on every circuit breaker transition.
	OnStateChange(endpoint string, from, to State)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) OnAttempt(string, int) {}

func (NopObserver) OnRetry(string, *fault.Failure, time.Duration) {}

func (NopObserver) OnOutcome(string, *fault.Failure, time.Duration) {}

func (NopObserver) OnStateChange(string, State, State) {}

var _ Observer = NopObserver{}
