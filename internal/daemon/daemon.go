package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"storyreel/internal/api"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/store"
)

// Daemon coordinates the API server and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	server *api.Server

	lockPath string
	lock     *flock.Flock
	renders  *render.Guard

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	DatabasePath string `json:"database_path"`
	LockFilePath string `json:"lock_file_path"`
	APIAddress   string `json:"api_address,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, server *api.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || server == nil {
		return nil, errors.New("daemon requires config, store, and api server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		renders:  render.NewGuard(cfg.RenderLockPath(), logger),
	}, nil
}

// Start acquires the daemon lock, recovers interrupted renders when no other
// process is rendering, and starts serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another storyreeld instance is already running (lock %s)", d.lockPath)
	}

	if _, err := d.renders.Hold(ctx, d.store); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	serverCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(serverCtx, strings.TrimSpace(d.cfg.Paths.APIBind)); err != nil {
		cancel()
		_ = d.renders.Release()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("storyreel daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()),
	)
	return nil
}

// Stop shuts the API down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.renders.Release(); err != nil {
		d.logger.Warn("failed to release render guard", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("storyreel daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports whether the daemon is serving and where its files live.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.APIAddress = d.server.Addr()
	}
	return status
}
