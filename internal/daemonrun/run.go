// Package daemonrun assembles the storyreel daemon from configuration and runs
// it until the process is signalled.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"storyreel/internal/api"
	"storyreel/internal/config"
	"storyreel/internal/daemon"
	"storyreel/internal/logging"
	"storyreel/internal/metrics"
	"storyreel/internal/pipeline"
	"storyreel/internal/preflight"
	"storyreel/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the storyreel daemon and blocks until cmdCtx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "storyreeld.log")},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open project store", logging.Error(err))
		return err
	}

	recorder := metrics.New()
	provider := pipeline.NewProvider(cfg, recorder)
	orch := pipeline.New(cfg, st, provider, logger, pipeline.WithMetrics(recorder))
	server := api.NewServer(orch, recorder, logger, api.WithWriteTimeout(renderWriteTimeout(cfg)))

	d, err := daemon.New(cfg, st, server, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg, provider)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "generation requests may fail until resolved"),
			logging.String(logging.FieldErrorHint, "run storyreel check for details"),
		)
	}

	logger.Info("storyreeld ready",
		logging.String("api", d.Status().APIAddress),
		logging.String("database", st.Path()),
		logging.String("media", cfg.Storage.BlobDir),
	)
	<-signalCtx.Done()
	logger.Info("storyreeld shutting down")
	return nil
}

// renderWriteTimeout leaves room for a full scene render inside one response.
func renderWriteTimeout(cfg *config.Config) time.Duration {
	return cfg.PollTimeout() + cfg.DownloadTimeout() + 2*time.Minute
}
