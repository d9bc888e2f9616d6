// Package metrics exports invoker and bulk-run events as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/invoker"
)

const namespace = "mailshield"

// Call outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeCanceled    = "canceled"
)

// Collector implements invoker.Observer and bulk.Recorder.
type Collector struct {
	attempts     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	retryWait    *prometheus.HistogramVec
	calls        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	breakerState *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	bulkItems    *prometheus.CounterVec
	bulkRuns     *prometheus.CounterVec
	bulkDuration *prometheus.HistogramVec
}

// New registers the mailshield metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		// attempts tracks every attempt per endpoint
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of call attempts",
			},
			[]string{"endpoint"},
		),

		// retries tracks retried failures per endpoint and kind
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retries",
			},
			[]string{"endpoint", "kind"},
		),

		retryWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retry_wait_seconds",
				Help:      "Wait before each retry in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 60},
			},
			[]string{"endpoint"},
		),

		// calls tracks finished calls per endpoint and outcome
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of finished calls",
			},
			[]string{"endpoint", "outcome"},
		),

		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Total number of failed calls by failure kind",
			},
			[]string{"endpoint", "kind", "exhausted"},
		),

		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Call duration including retries in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		// breakerState is 0 closed, 1 half-open, 2 open
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"endpoint"},
		),

		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Total number of circuit breaker state changes",
			},
			[]string{"endpoint", "from", "to"},
		),

		bulkItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_items_total",
				Help:      "Total number of bulk items by outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		bulkRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_runs_total",
				Help:      "Total number of bulk runs",
			},
			[]string{"endpoint", "aborted"},
		),

		bulkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bulk_run_duration_seconds",
				Help:      "Bulk run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"endpoint"},
		),
	}
}

// OnAttempt implements invoker.Observer.
func (c *Collector) OnAttempt(endpoint string, _ int) {
	c.attempts.WithLabelValues(endpoint).Inc()
}

// OnRetry implements invoker.Observer.
func (c *Collector) OnRetry(endpoint string, f *fault.Failure, wait time.Duration) {
	c.retries.WithLabelValues(endpoint, f.Kind.String()).Inc()
	c.retryWait.WithLabelValues(endpoint).Observe(wait.Seconds())
}

// OnOutcome implements invoker.Observer.
func (c *Collector) OnOutcome(endpoint string, f *fault.Failure, elapsed time.Duration) {
	outcome := Outcome(f)
	c.calls.WithLabelValues(endpoint, outcome).Inc()
	if outcome == OutcomeFailure {
		c.failures.WithLabelValues(endpoint, f.Kind.String(), strconv.FormatBool(f.Exhausted)).Inc()
	}
	if outcome != OutcomeCircuitOpen {
		c.callDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	}
}

// OnStateChange implements invoker.Observer.
func (c *Collector) OnStateChange(endpoint string, from, to invoker.State) {
	c.transitions.WithLabelValues(endpoint, from.String(), to.String()).Inc()
	c.breakerState.WithLabelValues(endpoint).Set(stateValue(to))
}

// RecordItem implements bulk.Recorder.
func (c *Collector) RecordItem(endpoint string, f *fault.Failure) {
	c.bulkItems.WithLabelValues(endpoint, Outcome(f)).Inc()
}

// RecordRun implements bulk.Recorder.
func (c *Collector) RecordRun(endpoint string, _, _ int, aborted bool, elapsed time.Duration) {
	c.bulkRuns.WithLabelValues(endpoint, strconv.FormatBool(aborted)).Inc()
	c.bulkDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Outcome maps a call result to its "outcome" label value.
func Outcome(f *fault.Failure) string {
	switch {
	case f == nil:
		return OutcomeSuccess
	case f.IsCircuitOpen():
		return OutcomeCircuitOpen
	case f.IsCanceled():
		return OutcomeCanceled
	default:
		return OutcomeFailure
	}
}

func stateValue(s invoker.State) float64 {
	switch s {
	case invoker.StateHalfOpen:
		return 1
	case invoker.StateOpen:
		return 2
	default:
		return 0
	}
}

var (
	_ invoker.Observer = (*Collector)(nil)
	_ bulk.Recorder    = (*Collector)(nil)
)
