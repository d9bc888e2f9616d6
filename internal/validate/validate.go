// Package validate holds the configuration checks shared by the invoker
// config and the CLI job file. Every check returns a *fault.ConfigError.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prilive-com/mailshield/fault"
)

// Newf creates a configuration error with a formatted message.
func Newf(key, format string, args ...any) *fault.ConfigError {
	return fault.NewConfigError(key, fmt.Sprintf(format, args...))
}

// AtLeast validates that value >= min.
func AtLeast(key string, value, min int) error {
	if value < min {
		return Newf(key, "must be at least %d, got %d", min, value)
	}
	return nil
}

// NonNegativeDuration validates that d is not negative.
func NonNegativeDuration(key string, d time.Duration) error {
	if d < 0 {
		return Newf(key, "cannot be negative, got %s", d)
	}
	return nil
}

// PositiveDuration validates that d is greater than zero.
func PositiveDuration(key string, d time.Duration) error {
	if d <= 0 {
		return Newf(key, "must be positive, got %s", d)
	}
	return nil
}

// Fraction validates that f is within [0, 1].
func Fraction(key string, f float64) error {
	if f < 0 || f > 1 {
		return Newf(key, "must be between 0 and 1, got %g", f)
	}
	return nil
}

// Required validates that a string is not blank.
func Required(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return Newf(key, "is required")
	}
	return nil
}

// URL validates an absolute http(s) URL.
func URL(key, raw string) error {
	if raw == "" {
		return Newf(key, "cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Newf(key, "invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Newf(key, "must start with http:// or https://")
	}
	if u.Host == "" {
		return Newf(key, "missing host")
	}
	return nil
}

// OneOf validates that value is one of allowed (case-insensitive).
func OneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return Newf(key, "invalid value %q, expected one of %s", value, strings.Join(allowed, ", "))
}
