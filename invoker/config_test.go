package invoker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/invoker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := invoker.DefaultConfig()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay)
	assert.InDelta(t, 0.2, cfg.JitterFraction, 1e-9)
	assert.Equal(t, uint32(5), cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Cooldown)
	assert.Equal(t, uint32(1), cfg.HalfOpenProbes)
	assert.Equal(t, 1, cfg.BulkConcurrency)
	assert.Equal(t, 200*time.Millisecond, cfg.BulkPacingDelay)
	assert.False(t, cfg.AbortOnOpen)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*invoker.Config)
		key    string
	}{
		{"zero attempts", func(c *invoker.Config) { c.MaxAttempts = 0 }, "max_attempts"},
		{"negative base delay", func(c *invoker.Config) { c.BaseDelay = -time.Second }, "base_delay"},
		{"max below base", func(c *invoker.Config) { c.MaxDelay = 100 * time.Millisecond }, "max_delay"},
		{"jitter above one", func(c *invoker.Config) { c.JitterFraction = 1.5 }, "jitter_fraction"},
		{"zero threshold", func(c *invoker.Config) { c.FailureThreshold = 0 }, "failure_threshold"},
		{"zero cooldown", func(c *invoker.Config) { c.Cooldown = 0 }, "cooldown"},
		{"zero probes", func(c *invoker.Config) { c.HalfOpenProbes = 0 }, "half_open_probes"},
		{"zero concurrency", func(c *invoker.Config) { c.BulkConcurrency = 0 }, "bulk_concurrency"},
		{"negative pacing", func(c *invoker.Config) { c.BulkPacingDelay = -1 }, "bulk_pacing_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := invoker.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, fault.ErrInvalidConfig)
			var cfgErr *fault.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestConfig_ZeroDelaysAllowed(t *testing.T) {
	cfg := invoker.DefaultConfig()
	cfg.BaseDelay = 0
	cfg.MaxDelay = 0
	cfg.BulkPacingDelay = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MAILSHIELD_MAX_ATTEMPTS", "5")
	t.Setenv("MAILSHIELD_BASE_DELAY", "1s")
	t.Setenv("MAILSHIELD_FAILURE_THRESHOLD", "2")
	t.Setenv("MAILSHIELD_COOLDOWN", "10s")
	t.Setenv("MAILSHIELD_BULK_CONCURRENCY", "4")
	t.Setenv("MAILSHIELD_ABORT_ON_OPEN", "true")
	t.Setenv("MAILSHIELD_JITTER_FRACTION", "0")

	cfg, err := invoker.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, uint32(2), cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Cooldown)
	assert.Equal(t, 4, cfg.BulkConcurrency)
	assert.True(t, cfg.AbortOnOpen)
	assert.Zero(t, cfg.JitterFraction)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay, "unset values keep their defaults")
}

func TestLoadConfig_Malformed(t *testing.T) {
	t.Setenv("MAILSHIELD_MAX_ATTEMPTS", "three")
	t.Setenv("MAILSHIELD_COOLDOWN", "soon")

	_, err := invoker.LoadConfig()
	require.ErrorIs(t, err, fault.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "MAILSHIELD_MAX_ATTEMPTS")
	assert.Contains(t, err.Error(), "MAILSHIELD_COOLDOWN")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("MAILSHIELD_FAILURE_THRESHOLD", "0")

	_, err := invoker.LoadConfig()
	assert.ErrorIs(t, err, fault.ErrInvalidConfig)
}
