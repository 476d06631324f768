// Package daemon implements watch mode: it rebuilds the documentation when
// sources change, on a schedule, and serves the results locally.
package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/roboworks/maptransformer/internal/build"
	"github.com/roboworks/maptransformer/internal/config"
	"github.com/roboworks/maptransformer/internal/daemon/events"
	"github.com/roboworks/maptransformer/internal/history"
)

// Daemon wires the watcher, debouncer, scheduler, build service and preview
// server together around the event bus.
type Daemon struct {
	cfg     *config.Config
	docsDir string
	svc     *build.Service

	bus       *events.Bus
	watcher   *Watcher
	debouncer *Debouncer
	scheduler *Scheduler
	server    *Server

	buildRunning atomic.Bool
	wg           sync.WaitGroup
}

// New assembles a daemon. registry and store are optional; when set they
// enable /metrics and /builds on the preview server.
func New(cfg *config.Config, docsDir string, svc *build.Service, registry *prom.Registry, store *history.Store) (*Daemon, error) {
	bus := events.NewBus()

	d := &Daemon{
		cfg:     cfg,
		docsDir: docsDir,
		svc:     svc,
		bus:     bus,
	}

	debouncer, err := NewDebouncer(bus, DebouncerConfig{
		QuietWindow:       cfg.Watch.Debounce,
		MaxDelay:          cfg.Watch.MaxDelay,
		CheckBuildRunning: d.buildRunning.Load,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.debouncer = debouncer

	roots := []string{docsDir}
	for _, input := range cfg.Doxygen.Inputs {
		if !filepath.IsAbs(input) {
			input = filepath.Join(docsDir, input)
		}
		roots = append(roots, input)
	}
	ignore := []string{
		filepath.Join(docsDir, cfg.Doxygen.OutputDir),
		filepath.Join(docsDir, "Doxyfile"),
		filepath.Join(docsDir, "conf.py"),
	}
	watcher, err := NewWatcher(bus, roots, ignore)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.watcher = watcher

	if cfg.Watch.Interval > 0 {
		scheduler, err := NewScheduler(bus)
		if err != nil {
			_ = watcher.Close()
			bus.Close()
			return nil, err
		}
		if _, err := scheduler.SchedulePeriodicBuild(cfg.Watch.Interval); err != nil {
			_ = watcher.Close()
			bus.Close()
			return nil, err
		}
		d.scheduler = scheduler
	}

	d.server = NewServer(ServerConfig{
		Addr:     cfg.Watch.Addr,
		HTMLDir:  filepath.Join(docsDir, cfg.Doxygen.OutputDir, "html"),
		PagesDir: docsDir,
		Registry: registry,
		History:  store,
	})

	return d, nil
}

// Bus exposes the event bus, mainly for tests and manual triggers.
func (d *Daemon) Bus() *events.Bus {
	return d.bus
}

// Run starts all components and blocks until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting watch mode",
		"docs_dir", d.docsDir,
		"addr", d.cfg.Watch.Addr,
		"debounce", d.cfg.Watch.Debounce,
		"interval", d.cfg.Watch.Interval)

	// The bus drops events with no matching subscriber, so the BuildNow
	// consumer must exist before the debouncer can emit anything.
	buildNowCh, unsubscribe := events.Subscribe[events.BuildNow](d.bus, 4)
	defer unsubscribe()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.debouncer.Run(ctx)
	}()

	// Likewise the debouncer must be subscribed to BuildRequested before the
	// initial request goes out.
	select {
	case <-d.debouncer.Ready():
	case <-ctx.Done():
		d.shutdown()
		d.wg.Wait()
		return nil
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.watcher.Run(ctx)
	}()

	if d.scheduler != nil {
		d.scheduler.Start()
	}
	d.server.Start()

	// Initial build so the preview has something to serve.
	if err := d.bus.Publish(ctx, events.BuildRequested{
		Reason:      "manual",
		Immediate:   true,
		RequestedAt: time.Now(),
	}); err != nil {
		slog.Warn("Could not request initial build", "error", err)
	}

	d.consumeBuilds(ctx, buildNowCh)

	d.shutdown()
	d.wg.Wait()
	return nil
}

// consumeBuilds runs builds for BuildNow events until ctx is canceled.
func (d *Daemon) consumeBuilds(ctx context.Context, buildNowCh <-chan events.BuildNow) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-buildNowCh:
			if !ok {
				return
			}
			d.runBuild(ctx, evt)
		}
	}
}

func (d *Daemon) runBuild(ctx context.Context, evt events.BuildNow) {
	d.buildRunning.Store(true)
	defer d.buildRunning.Store(false)

	slog.Info("Triggering build",
		"cause", evt.DebounceCause,
		"requests", evt.RequestCount,
		"reason", evt.LastReason)

	report, err := d.svc.Build(ctx, false)
	if err != nil {
		slog.Error("Build failed", "build_id", report.BuildID, "error", err)
	}

	finished := events.BuildFinished{
		BuildID:    report.BuildID,
		Outcome:    string(report.Outcome),
		DoxygenRan: report.DoxygenRan,
		Duration:   report.Duration,
		FinishedAt: report.FinishedAt,
	}
	if err := d.bus.Publish(ctx, finished); err != nil {
		slog.Debug("Could not publish build finished event", "error", err)
	}
}

func (d *Daemon) shutdown() {
	slog.Info("Stopping watch mode")

	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", "error", err)
		}
	}
	if err := d.watcher.Close(); err != nil {
		slog.Warn("Watcher shutdown failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Preview server shutdown failed", "error", err)
	}

	d.bus.Close()
}
