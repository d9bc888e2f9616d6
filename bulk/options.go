package bulk

import (
	"log/slog"
	"time"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/invoker"
)

// Progress reports one finished item.
type Progress struct {
	RunID     string
	Index     int
	Completed int // items finished so far, this one included
	Total     int
	Failure   *fault.Failure // nil on success
}

// Recorder receives per-item and per-run outcomes, typically for metrics.
type Recorder interface {
	RecordItem(endpoint string, f *fault.Failure)
	RecordRun(endpoint string, succeeded, failed int, aborted bool, elapsed time.Duration)
}

// Option configures a bulk run. Unset options fall back to the invoker's
// configuration.
type Option func(*settings)

type settings struct {
	concurrency int
	pacing      time.Duration
	abortOnOpen bool
	logger      *slog.Logger
	sleeper     invoker.Sleeper
	progress    func(Progress)
	recorder    Recorder
}

func newSettings(inv *invoker.Invoker, opts []Option) settings {
	cfg := inv.Config()
	s := settings{
		concurrency: cfg.BulkConcurrency,
		pacing:      cfg.BulkPacingDelay,
		abortOnOpen: cfg.AbortOnOpen,
		logger:      inv.Logger(),
		sleeper:     inv.Sleeper(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithConcurrency bounds the number of items in flight.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		s.concurrency = n
	}
}

// WithPacing sets the minimum spacing between item starts. 0 disables it.
func WithPacing(d time.Duration) Option {
	return func(s *settings) {
		s.pacing = d
	}
}

// WithAbortOnOpen halts the run at the first circuit-open outcome.
func WithAbortOnOpen(abort bool) Option {
	return func(s *settings) {
		s.abortOnOpen = abort
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSleeper sets the sleeper used for rate-limit holds (useful for testing).
func WithSleeper(sl invoker.Sleeper) Option {
	return func(s *settings) {
		s.sleeper = sl
	}
}

// WithProgress calls fn after every item. Calls are serialized.
func WithProgress(fn func(Progress)) Option {
	return func(s *settings) {
		s.progress = fn
	}
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}
