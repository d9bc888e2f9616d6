// Command mailshield runs YAML-described batches of email API requests
// through the mailshield resilience layer and reports the outcome.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	jobPath string
	envFile string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "mailshield",
	Short: "Resilient batch runner for email APIs",
	Long: `mailshield sends batches of email API requests with retries, backoff and
a per-endpoint circuit breaker, and reports every request's outcome.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env never overrides variables already set
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				slog.Warn("failed to load env file", "path", envFile, "error", err)
			}
		} else {
			_ = godotenv.Load()
		}
		slog.SetDefault(newLogger(isDebug))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&jobPath, "job", "job.yaml", "job file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env if present)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, configCmd)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("MAILSHIELD_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
