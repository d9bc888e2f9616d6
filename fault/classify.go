package fault

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"
)

// DefaultRateLimitWait is the wait attached to a rate-limit signal that
// carries no explicit Retry-After.
const DefaultRateLimitWait = 2 * time.Second

// Classifier maps a raw failure to a Failure. Implementations must be pure,
// must never panic, and must return nil only for a nil error.
type Classifier func(err error) *Failure

var defaultClassifier = NewClassifier(DefaultRateLimitWait)

// Classify is the default Classifier.
func Classify(err error) *Failure {
	return defaultClassifier(err)
}

// NewClassifier returns the default classification rules with a custom
// wait for rate-limit signals that carry no explicit Retry-After.
func NewClassifier(rateLimitWait time.Duration) Classifier {
	return func(err error) *Failure {
		return classify(err, rateLimitWait)
	}
}

// Chain tries each classifier in order and returns the first result whose
// Kind is not Unknown. Falls back to the last non-nil result.
func Chain(classifiers ...Classifier) Classifier {
	return func(err error) *Failure {
		if err == nil {
			return nil
		}
		var last *Failure
		for _, c := range classifiers {
			f := c(err)
			if f == nil {
				continue
			}
			if f.Kind != Unknown {
				return f
			}
			last = f
		}
		if last == nil {
			last = &Failure{Kind: Unknown, Message: err.Error(), Err: err}
		}
		return last
	}
}

// classify applies the rules in priority order: rate limit, auth,
// validation, transient/server, unknown.
func classify(err error, rateLimitWait time.Duration) *Failure {
	if err == nil {
		return nil
	}

	var already *Failure
	if errors.As(err, &already) {
		return already
	}

	f := &Failure{Message: err.Error(), Err: err}

	var remote *RemoteError
	status := 0
	if errors.As(err, &remote) {
		status = remote.StatusCode
	}

	switch {
	case status == 429 || errors.Is(err, ErrRateLimited):
		f.Kind = RateLimited
		f.Retryable = true
		f.RetryAfter = rateLimitWait

	case status == 401 || status == 403 ||
		errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden):
		f.Kind = Auth

	case errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound):
		f.Kind = Validation

	case errors.Is(err, context.Canceled):
		f.Kind = Unknown

	case isTransient(err, status):
		f.Kind = Transient
		f.Retryable = true

	case status >= 500 && status <= 599:
		f.Kind = ServerError
		f.Retryable = true

	default:
		f.Kind = Unknown
	}

	// An explicit server hint applies to any retryable failure.
	if f.Retryable && remote != nil && remote.RetryAfter > 0 {
		f.RetryAfter = remote.RetryAfter
	}

	return f
}

func isTransient(err error, status int) bool {
	if status == 408 {
		return true
	}
	if status != 0 {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	// A bare EOF only means a dropped connection when it comes out of the
	// HTTP transport.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, io.EOF) {
		return true
	}

	return false
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
