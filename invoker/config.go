package invoker

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/resilience"
	"github.com/prilive-com/mailshield/internal/validate"
)

// Config holds the resilience configuration shared by an invoker pool and
// the bulk runs driven through it.
type Config struct {
	// Retry
	MaxAttempts    int // Total tries including the first (1 = no retries)
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64

	// Circuit breaker
	FailureThreshold uint32
	Cooldown         time.Duration
	HalfOpenProbes   uint32

	// Bulk runs
	BulkConcurrency int
	BulkPacingDelay time.Duration // 0 disables pacing
	AbortOnOpen     bool

	// Wait attached to rate-limit signals that carry no Retry-After.
	RateLimitWait time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		BaseDelay:        500 * time.Millisecond,
		MaxDelay:         30 * time.Second,
		JitterFraction:   0.2,
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
		HalfOpenProbes:   1,
		BulkConcurrency:  1,
		BulkPacingDelay:  200 * time.Millisecond,
		AbortOnOpen:      false,
		RateLimitWait:    fault.DefaultRateLimitWait,
	}
}

// LoadConfig loads configuration from MAILSHIELD_* environment variables,
// falling back to DefaultConfig for unset ones.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	var errs []error

	envInt(&errs, "MAILSHIELD_MAX_ATTEMPTS", &cfg.MaxAttempts)
	envDuration(&errs, "MAILSHIELD_BASE_DELAY", &cfg.BaseDelay)
	envDuration(&errs, "MAILSHIELD_MAX_DELAY", &cfg.MaxDelay)
	envFloat(&errs, "MAILSHIELD_JITTER_FRACTION", &cfg.JitterFraction)
	envUint32(&errs, "MAILSHIELD_FAILURE_THRESHOLD", &cfg.FailureThreshold)
	envDuration(&errs, "MAILSHIELD_COOLDOWN", &cfg.Cooldown)
	envUint32(&errs, "MAILSHIELD_HALF_OPEN_PROBES", &cfg.HalfOpenProbes)
	envInt(&errs, "MAILSHIELD_BULK_CONCURRENCY", &cfg.BulkConcurrency)
	envDuration(&errs, "MAILSHIELD_BULK_PACING_DELAY", &cfg.BulkPacingDelay)
	envBool(&errs, "MAILSHIELD_ABORT_ON_OPEN", &cfg.AbortOnOpen)
	envDuration(&errs, "MAILSHIELD_RATE_LIMIT_WAIT", &cfg.RateLimitWait)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting as a *fault.ConfigError.
func (c Config) Validate() error {
	checks := []error{
		validate.AtLeast("max_attempts", c.MaxAttempts, 1),
		validate.NonNegativeDuration("base_delay", c.BaseDelay),
		validate.NonNegativeDuration("max_delay", c.MaxDelay),
		validate.Fraction("jitter_fraction", c.JitterFraction),
		validate.AtLeast("failure_threshold", int(c.FailureThreshold), 1),
		validate.PositiveDuration("cooldown", c.Cooldown),
		validate.AtLeast("half_open_probes", int(c.HalfOpenProbes), 1),
		validate.AtLeast("bulk_concurrency", c.BulkConcurrency, 1),
		validate.NonNegativeDuration("bulk_pacing_delay", c.BulkPacingDelay),
		validate.NonNegativeDuration("rate_limit_wait", c.RateLimitWait),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.MaxDelay < c.BaseDelay {
		return validate.Newf("max_delay", "must not be below base_delay (%s < %s)", c.MaxDelay, c.BaseDelay)
	}
	return nil
}

// RetryConfig extracts the retry settings.
func (c Config) RetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      c.BaseDelay,
		MaxDelay:       c.MaxDelay,
		JitterFraction: c.JitterFraction,
	}
}

// BreakerConfig extracts the circuit breaker settings for endpoint.
func (c Config) BreakerConfig(endpoint string) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:             endpoint,
		FailureThreshold: c.FailureThreshold,
		Cooldown:         c.Cooldown,
		HalfOpenProbes:   c.HalfOpenProbes,
	}
}

func envInt(errs *[]error, key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, validate.Newf(key, "not an integer: %q", v))
			return
		}
		*dst = i
	}
}

func envUint32(errs *[]error, key string, dst *uint32) {
	if v, ok := os.LookupEnv(key); ok {
		i, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			*errs = append(*errs, validate.Newf(key, "not an unsigned integer: %q", v))
			return
		}
		*dst = uint32(i)
	}
}

func envFloat(errs *[]error, key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, validate.Newf(key, "not a number: %q", v))
			return
		}
		*dst = f
	}
}

func envDuration(errs *[]error, key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, validate.Newf(key, "not a duration: %q", v))
			return
		}
		*dst = d
	}
}

func envBool(errs *[]error, key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, validate.Newf(key, "not a boolean: %q", v))
			return
		}
		*dst = b
	}
}
