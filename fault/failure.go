package fault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of failure categories.
// The zero value is Unknown.
type Kind uint8

const (
	Unknown Kind = iota
	Transient
	RateLimited
	Auth
	Validation
	ServerError

	kindCount = int(ServerError) + 1
)

var kindNames = [kindCount]string{
	Unknown:     "unknown",
	Transient:   "transient",
	RateLimited: "rate_limited",
	Auth:        "auth",
	Validation:  "validation",
	ServerError: "server_error",
}

// Kinds returns every Kind in declaration order.
func Kinds() []Kind {
	return []Kind{Unknown, Transient, RateLimited, Auth, Validation, ServerError}
}

func (k Kind) String() string {
	if int(k) < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("mailshield: unknown failure kind %q", text)
}

// Failure is a classified failure: the single error type the engine hands
// back to callers. errors.Is/As reach the raw failure through Unwrap.
type Failure struct {
	Kind       Kind
	Retryable  bool
	RetryAfter time.Duration // 0 when the remote gave no explicit wait
	Message    string

	// Attempts is the number of real invocations made before this failure
	// was surfaced. Zero for failures that never reached the operation.
	Attempts int

	// Exhausted is set when a retryable failure ran out of attempts.
	Exhausted bool

	Err error
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString("mailshield: ")
	if f.IsCircuitOpen() {
		sb.WriteString("circuit open")
	} else {
		sb.WriteString(f.Kind.String())
	}
	if f.Exhausted {
		fmt.Fprintf(&sb, " (gave up after %d attempts)", f.Attempts)
	}
	if f.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	return sb.String()
}

// Unwrap returns the raw failure.
func (f *Failure) Unwrap() error { return f.Err }

// Is reports exhausted failures as ErrMaxRetries.
func (f *Failure) Is(target error) bool {
	return target == ErrMaxRetries && f.Exhausted
}

// IsCircuitOpen reports whether the call was refused by the circuit breaker
// without reaching the remote.
func (f *Failure) IsCircuitOpen() bool {
	return errors.Is(f.Err, ErrCircuitOpen)
}

// IsCanceled reports whether the failure stems from caller cancellation.
func (f *Failure) IsCanceled() bool {
	return f.Kind == Unknown && isContextErr(f.Err)
}

// CircuitOpen builds the fast-fail failure returned while a breaker refuses
// calls. cause is the breaker's own rejection error and may be nil.
func CircuitOpen(endpoint string, cause error) *Failure {
	err := ErrCircuitOpen
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, cause)
	}
	return &Failure{
		Kind:    Unknown,
		Message: fmt.Sprintf("endpoint %q is not accepting calls", endpoint),
		Err:     err,
	}
}

// Canceled builds the failure returned when the caller's context ends.
func Canceled(cause error) *Failure {
	msg := "canceled"
	if cause != nil {
		msg = cause.Error()
	}
	return &Failure{Kind: Unknown, Message: msg, Err: cause}
}

// As extracts a *Failure from err, classifying it with Classify when err
// is not already one. Returns nil for a nil error.
func As(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Classify(err)
}
