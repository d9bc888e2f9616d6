// Package job loads the YAML job files run by the mailshield CLI.
package job

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prilive-com/mailshield/httpop"
	"github.com/prilive-com/mailshield/internal/scrub"
	"github.com/prilive-com/mailshield/internal/validate"
	"github.com/prilive-com/mailshield/invoker"
)

// Job is a batch of API requests run through one resilient client.
type Job struct {
	Name       string           `yaml:"name"`
	BaseURL    string           `yaml:"base_url"`
	Endpoint   string           `yaml:"endpoint"`
	AuthToken  scrub.Secret     `yaml:"auth_token"`
	TokenParam string           `yaml:"token_param,omitempty"`
	Timeout    time.Duration    `yaml:"timeout,omitempty"` // 0 = no deadline
	Resilience Resilience       `yaml:"resilience"`
	Requests   []httpop.Request `yaml:"requests"`
}

// Resilience overrides invoker settings. Unset fields keep the base value.
type Resilience struct {
	MaxAttempts      *int           `yaml:"max_attempts,omitempty"`
	BaseDelay        *time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay         *time.Duration `yaml:"max_delay,omitempty"`
	JitterFraction   *float64       `yaml:"jitter_fraction,omitempty"`
	FailureThreshold *uint32        `yaml:"failure_threshold,omitempty"`
	Cooldown         *time.Duration `yaml:"cooldown,omitempty"`
	HalfOpenProbes   *uint32        `yaml:"half_open_probes,omitempty"`
	BulkConcurrency  *int           `yaml:"bulk_concurrency,omitempty"`
	BulkPacingDelay  *time.Duration `yaml:"bulk_pacing_delay,omitempty"`
	AbortOnOpen      *bool          `yaml:"abort_on_open,omitempty"`
	RateLimitWait    *time.Duration `yaml:"rate_limit_wait,omitempty"`
}

// Load reads a job file. ${VAR} references are expanded from the
// environment before parsing; unknown keys are rejected.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a job from YAML.
func Parse(data []byte) (*Job, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var j Job
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	if j.Name == "" {
		j.Name = "job"
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Validate checks the job. Request errors name the offending index.
func (j *Job) Validate() error {
	if err := validate.URL("base_url", j.BaseURL); err != nil {
		return err
	}
	if j.Timeout < 0 {
		return validate.Newf("timeout", "cannot be negative, got %s", j.Timeout)
	}
	if len(j.Requests) == 0 {
		return validate.Newf("requests", "at least one request is required")
	}
	for i, req := range j.Requests {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("requests[%d]: %w", i, err)
		}
	}
	return j.Config(invoker.DefaultConfig()).Validate()
}

// Config applies the job's overrides on top of base.
func (j *Job) Config(base invoker.Config) invoker.Config {
	r := j.Resilience
	set(&base.MaxAttempts, r.MaxAttempts)
	set(&base.BaseDelay, r.BaseDelay)
	set(&base.MaxDelay, r.MaxDelay)
	set(&base.JitterFraction, r.JitterFraction)
	set(&base.FailureThreshold, r.FailureThreshold)
	set(&base.Cooldown, r.Cooldown)
	set(&base.HalfOpenProbes, r.HalfOpenProbes)
	set(&base.BulkConcurrency, r.BulkConcurrency)
	set(&base.BulkPacingDelay, r.BulkPacingDelay)
	set(&base.AbortOnOpen, r.AbortOnOpen)
	set(&base.RateLimitWait, r.RateLimitWait)
	return base
}

// Marshal renders the job as YAML with the token redacted.
func (j *Job) Marshal() ([]byte, error) {
	return yaml.Marshal(j)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
