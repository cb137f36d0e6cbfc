package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obaldwin4/congenial-palm-tree/internal/log"
	"github.com/obaldwin4/congenial-palm-tree/internal/metrics"
	"github.com/obaldwin4/congenial-palm-tree/internal/probe"
	"github.com/spf13/cobra"
)

// newMonitorCmd applies the orchestrator's health policy from outside the
// container, for supervisors that have no healthcheck support of their own.
func newMonitorCmd() *cobra.Command {
	var (
		url             string
		policy          = probe.DefaultPolicy()
		exitOnUnhealthy bool
		metricsAddr     string
		logLevel        string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Probe the version endpoint periodically and track health state",
		Long: `Probe the version endpoint every --interval with a --timeout per probe.
Failures during --start-period are not counted until a probe succeeds.
After --retries consecutive failures the target is unhealthy; with
--exit-on-unhealthy the command then exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, log.Options{Level: logLevel})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector(false)
			if metricsAddr != "" {
				ln, err := net.Listen("tcp", metricsAddr)
				if err != nil {
					return fmt.Errorf("listen on %s: %w", metricsAddr, err)
				}
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("Metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			m := &probe.Monitor{
				URL:             url,
				Policy:          policy,
				Client:          &http.Client{},
				Recorder:        collector,
				Logger:          logger,
				StopOnUnhealthy: exitOnUnhealthy,
			}
			return m.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&url, "url", defaultProbeURL, "endpoint to probe")
	flags.DurationVar(&policy.Interval, "interval", policy.Interval, "time between probes")
	flags.DurationVar(&policy.Timeout, "timeout", policy.Timeout, "probe timeout")
	flags.IntVar(&policy.Retries, "retries", policy.Retries, "consecutive failures before unhealthy")
	flags.DurationVar(&policy.StartPeriod, "start-period", policy.StartPeriod, "grace period during which failures are not counted")
	flags.BoolVar(&exitOnUnhealthy, "exit-on-unhealthy", true, "exit with status 1 once unhealthy")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve probe metrics on this address (disabled when empty)")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}
