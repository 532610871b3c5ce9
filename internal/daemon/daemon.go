// Package daemon wires the long-running lecternd process: configuration,
// history store, job registry, processing pipeline, and the HTTP API,
// with a file lock enforcing single-instance execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/history"
	"lectern/internal/jobs"
	"lectern/internal/logging"
	"lectern/internal/preflight"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	registry *jobs.Registry
	server   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running       bool
	APIAddress    string
	HistoryDBPath string
	LockFilePath  string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		lockPath: filepath.Join(cfg.Paths.WorkDir, "lecternd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.registry = jobs.NewRegistry(
		jobs.Options{
			QueueCapacity:    cfg.Jobs.QueueCapacity,
			RetentionMinutes: cfg.Jobs.RetentionMinutes,
		},
		newDownloadFunc(cfg, logger),
		newProcessFunc(cfg, logger),
		store,
		logger,
	)
	d.server = api.NewServer(cfg.Paths.APIBind, d.registry, store, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks, and launches the
// registry worker and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.reportPreflight(runCtx)

	d.registry.Start(runCtx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		d.registry.Wait()
		_ = d.lock.Unlock()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("lectern daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()),
	)
	return nil
}

// reportPreflight logs failed environment checks. Missing optional pieces
// are warnings; the daemon still starts so the API can report status.
func (d *Daemon) reportPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	statuses := preflight.CheckSystemDeps(ctx, d.cfg)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		d.logger.Warn("required tools missing, processing will fail until installed",
			logging.String("missing", strings.Join(missing, ", ")),
		)
	}
}

// Stop shuts down background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.registry.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns current runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		APIAddress:    d.server.Addr(),
		HistoryDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
		Dependencies:  preflight.CheckSystemDeps(ctx, d.cfg),
	}
}
