package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/obaldwin4/congenial-palm-tree/internal/buildinfo"
	"github.com/obaldwin4/congenial-palm-tree/internal/config"
	"github.com/obaldwin4/congenial-palm-tree/internal/datadir"
	"github.com/obaldwin4/congenial-palm-tree/internal/domain"
	"github.com/obaldwin4/congenial-palm-tree/internal/heartbeat"
	httphandler "github.com/obaldwin4/congenial-palm-tree/internal/http"
	"github.com/obaldwin4/congenial-palm-tree/internal/http/handler"
	"github.com/obaldwin4/congenial-palm-tree/internal/log"
	"github.com/obaldwin4/congenial-palm-tree/internal/metrics"
	"github.com/obaldwin4/congenial-palm-tree/internal/storage"
	"github.com/obaldwin4/congenial-palm-tree/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Long: `Run the HTTP server.

Configuration is read from the environment:
  BACKEND_HTTP_ADDR           listen address (default :8081)
  BACKEND_DATA_DIR            mounted data directory (default /app/data)
  BACKEND_DATA_DIR_POLL_INTERVAL
                              re-stat interval of the mount watcher (default 5s)
  BACKEND_LOG_LEVEL           debug, info, warn or error (default info)
  BACKEND_LOG_FORMAT          json or text (default json)
  BACKEND_SHUTDOWN_TIMEOUT    graceful shutdown bound (default 5s)
  BACKEND_HEARTBEAT_SCHEDULE  cron spec of the heartbeat (default @every 1m)
  BACKEND_READINESS_TIMEOUT   per-check timeout of /healthz (default 2s)
  BACKEND_METRICS_ENABLED     expose /metrics (default true)

The process exits non-zero when the data directory is missing or not
writable, at startup or later while running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := log.New(os.Stdout, log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("Failed to start", "error", err)
				return err
			}
			defer a.close()

			ln, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				logger.Error("Server failed to start", "addr", cfg.HTTPAddr, "error", err)
				return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
			}
			return a.serve(ctx, ln)
		},
	}
}

// app is one run of the service against a data directory.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	dir       *datadir.Dir
	store     *sqlite.Store
	boot      domain.Boot
	metrics   *metrics.Collector
	heartbeat *heartbeat.Scheduler
	router    *gin.Engine
}

// newApp validates the data directory, opens the store and records the
// start. Every step is safe to repeat on the next start after a crash.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	dir, err := datadir.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory unusable: %w", err)
	}

	store, err := sqlite.Open(dir.Join(sqlite.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	boot, err := store.RecordStart(ctx, time.Now())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to record start: %w", err)
	}
	if boot.UncleanRestart() {
		logger.Warn("Previous run did not shut down cleanly",
			"instance_id", boot.Instance.ID,
			"last_seen_at", boot.Previous.LastSeenAt,
		)
	}
	logger.Info("Instance started",
		"instance_id", boot.Instance.ID,
		"start_count", boot.Instance.StartCount,
		"data_dir", dir.Path(),
	)
	if err := recordVersion(ctx, store, buildinfo.Version, logger); err != nil {
		_ = store.Close()
		return nil, err
	}

	info := domain.VersionInfo{
		Version:    buildinfo.Version,
		Commit:     buildinfo.Commit,
		BuildDate:  buildinfo.Date,
		GoVersion:  buildinfo.GoVersion(),
		InstanceID: boot.Instance.ID,
		StartCount: boot.Instance.StartCount,
		StartedAt:  boot.Instance.LastStartedAt,
	}
	versionHandler, err := handler.NewVersionHandler(info)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var (
		collector *metrics.Collector
		recorder  heartbeat.Recorder
	)
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(true)
		collector.SetBuildInfo(info.Version, info.Commit, info.GoVersion)
		collector.SetInstanceStarts(boot.Instance.StartCount)
		recorder = collector
	}

	beat := heartbeat.NewScheduler(store, cfg.HeartbeatSchedule, recorder, logger)
	router := httphandler.NewRouter(httphandler.RouterDeps{
		Version: versionHandler,
		Checks: map[string]handler.CheckFunc{
			"datadir":   dir.CheckWritable,
			"storage":   store.Ping,
			"heartbeat": heartbeatRunning(beat),
		},
		ReadinessTimeout: cfg.ReadinessTimeout,
		Metrics:          collector,
		Logger:           logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		dir:       dir,
		store:     store,
		boot:      boot,
		metrics:   collector,
		heartbeat: beat,
		router:    router,
	}, nil
}

const lastVersionKey = "last_version"

// recordVersion compares the running build with the one that last served
// from this data directory and stores the running one.
func recordVersion(ctx context.Context, store storage.Store, version string, logger *slog.Logger) error {
	previous, err := store.Get(ctx, lastVersionKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read last version: %w", err)
	case previous != version:
		logger.Info("Version changed since last run", "from", previous, "to", version)
	default:
		return nil
	}
	if err := store.Put(ctx, lastVersionKey, version); err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}
	return nil
}

func heartbeatRunning(s *heartbeat.Scheduler) handler.CheckFunc {
	return func(context.Context) error {
		if !s.IsRunning() {
			return errors.New("heartbeat scheduler is not running")
		}
		return nil
	}
}

// serve blocks until ctx is done or the data directory is lost. A lost
// directory is returned as an error so the process exits non-zero.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	if err := a.heartbeat.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}
	if next := a.heartbeat.NextRun(); next != nil {
		a.logger.Info("Heartbeat scheduled", "next_run", next.UTC())
	}
	watcher, err := a.dir.NewWatcher(a.logger, a.cfg.DataDirPoll)
	if err != nil {
		a.heartbeat.Stop()
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("Starting backend service", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := watcher.Run(watchCtx); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
	case runErr = <-errCh:
		a.logger.Error("Shutting down after fatal error", "error", runErr)
	}
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", "error", err)
		runErr = errors.Join(runErr, err)
	}
	a.heartbeat.Stop()

	if runErr != nil {
		return runErr
	}
	if err := a.store.RecordStop(shutdownCtx, time.Now()); err != nil {
		a.logger.Error("Failed to record clean shutdown", "error", err)
		return err
	}
	a.logger.Info("Server exited")
	return nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close state store", "error", err)
	}
}
