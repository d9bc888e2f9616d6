package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prilive-com/mailshield/cmd/mailshield/job"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings of a job file",
	RunE:  showConfig,
}

func showConfig(cmd *cobra.Command, args []string) error {
	j, err := job.Load(jobPath)
	if err != nil {
		slog.Error("failed to load job", "path", jobPath, "error", err)
		return err
	}
	cfg, err := effectiveConfig(j)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "job\t%s\n", j.Name)
	fmt.Fprintf(w, "base_url\t%s\n", j.BaseURL)
	fmt.Fprintf(w, "endpoint\t%s\n", j.Endpoint)
	fmt.Fprintf(w, "auth_token\t%s\n", j.AuthToken)
	fmt.Fprintf(w, "requests\t%d\n", len(j.Requests))
	fmt.Fprintf(w, "max_attempts\t%d\n", cfg.MaxAttempts)
	fmt.Fprintf(w, "base_delay\t%s\n", cfg.BaseDelay)
	fmt.Fprintf(w, "max_delay\t%s\n", cfg.MaxDelay)
	fmt.Fprintf(w, "jitter_fraction\t%g\n", cfg.JitterFraction)
	fmt.Fprintf(w, "failure_threshold\t%d\n", cfg.FailureThreshold)
	fmt.Fprintf(w, "cooldown\t%s\n", cfg.Cooldown)
	fmt.Fprintf(w, "half_open_probes\t%d\n", cfg.HalfOpenProbes)
	fmt.Fprintf(w, "bulk_concurrency\t%d\n", cfg.BulkConcurrency)
	fmt.Fprintf(w, "bulk_pacing_delay\t%s\n", cfg.BulkPacingDelay)
	fmt.Fprintf(w, "abort_on_open\t%t\n", cfg.AbortOnOpen)
	fmt.Fprintf(w, "rate_limit_wait\t%s\n", cfg.RateLimitWait)
	if err := w.Flush(); err != nil {
		return err
	}

	if isDebug {
		data, err := j.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s", data)
	}
	return nil
}
