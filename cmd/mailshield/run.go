package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/prilive-com/mailshield"
	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/cmd/mailshield/job"
	"github.com/prilive-com/mailshield/cmd/mailshield/report"
	"github.com/prilive-com/mailshield/invoker"
)

var (
	metricsAddr string
	reportDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a job file",
	RunE:  runJob,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	runCmd.Flags().StringVar(&reportDir, "report-dir", "./var", "directory for JSON run reports")
}

func runJob(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	j, err := job.Load(jobPath)
	if err != nil {
		logger.Error("failed to load job", "path", jobPath, "error", err)
		return err
	}
	cfg, err := effectiveConfig(j)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []mailshield.Option{
		mailshield.WithAuthToken(j.AuthToken.Value()),
		mailshield.WithConfig(cfg),
		mailshield.WithLogger(logger),
		mailshield.WithMetrics(reg),
	}
	if j.Endpoint != "" {
		opts = append(opts, mailshield.WithEndpoint(j.Endpoint))
	}
	if j.TokenParam != "" {
		opts = append(opts, mailshield.WithTokenParam(j.TokenParam))
	}
	client, err := mailshield.New(j.BaseURL, opts...)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		return err
	}

	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr, reg, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger.Info("mailshield job starting",
		"job", j.Name,
		"endpoint", client.Endpoint(),
		"requests", len(j.Requests),
		"concurrency", cfg.BulkConcurrency,
		"max_attempts", cfg.MaxAttempts)

	rep := report.NewReport(j.Name, client.Endpoint())
	res := client.Bulk(ctx, j.Requests, bulk.WithProgress(func(p bulk.Progress) {
		if p.Failure != nil {
			logger.Warn("request failed",
				"index", p.Index,
				"request", j.Requests[p.Index].Name,
				"error", p.Failure)
			return
		}
		logger.Debug("request done", "index", p.Index, "completed", p.Completed, "total", p.Total)
	}))
	rep.Finalize(j.Requests, res)

	filename, err := rep.Save(reportDir)
	if err != nil {
		logger.Error("failed to save report", "error", err)
	} else {
		logger.Info("report saved", "filename", filename)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\n"+rep.FormatSummary())

	if !rep.Success {
		return fmt.Errorf("job %s: %d of %d requests failed", j.Name, rep.Summary.Failed, rep.Summary.Total)
	}
	return nil
}

// effectiveConfig layers the job's overrides over MAILSHIELD_* env settings.
func effectiveConfig(j *job.Job) (invoker.Config, error) {
	base, err := invoker.LoadConfig()
	if err != nil {
		return invoker.Config{}, err
	}
	cfg := j.Config(*base)
	return cfg, cfg.Validate()
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
