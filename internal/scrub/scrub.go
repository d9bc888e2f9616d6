// Package scrub provides security helpers for removing sensitive data from errors.
package scrub

import (
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// Secret is a credential that never prints its value.
type Secret string

// Value returns the actual secret. Only use this when talking to the remote.
func (s Secret) Value() string { return string(s) }

// String returns a redacted placeholder (fmt.Stringer).
func (s Secret) String() string { return redacted }

// GoString returns redacted for %#v (fmt.GoStringer).
func (s Secret) GoString() string { return `scrub.Secret("[REDACTED]")` }

// LogValue returns a redacted value for slog (slog.LogValuer).
func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalText keeps the secret out of JSON reports.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// IsEmpty reports whether no secret is set.
func (s Secret) IsEmpty() bool { return s == "" }

// String replaces every non-empty secret in msg.
func String(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, redacted)
		}
	}
	return msg
}

// Error removes secrets from error messages.
// Go's http.Client.Do() includes the request URL (which may carry an API
// token) in error strings. Preserves the error chain for errors.Is/As via Unwrap().
func Error(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := String(msg, secrets...)
	if clean == msg {
		return err
	}
	return &scrubbedError{msg: clean, err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
