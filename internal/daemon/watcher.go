package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roboworks/maptransformer/internal/daemon/events"
)

// Watcher monitors the documentation sources and publishes BuildRequested
// events when they change. Generated artifacts are ignored so builds do not
// retrigger themselves.
type Watcher struct {
	bus     *events.Bus
	watcher *fsnotify.Watcher
	ignore  []string // path prefixes that never trigger builds
}

// NewWatcher creates a watcher over the given root directories. Each root is
// watched recursively; directories created later are picked up as they
// appear. Paths under any of the ignore prefixes are skipped.
func NewWatcher(bus *events.Bus, roots, ignore []string) (*Watcher, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{bus: bus, watcher: fsw, ignore: ignore}
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Roots may list directories that do not exist yet.
			slog.Debug("Skipping unwatchable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) || strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, prefix := range w.ignore {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run processes file system events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("Watching documentation sources", "dirs", len(w.watcher.WatchList()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return
	}

	// Newly created directories join the watch set.
	if event.Op.Has(fsnotify.Create) {
		if err := w.addRecursive(event.Name); err != nil {
			slog.Debug("Could not extend watch set", "path", event.Name, "error", err)
		}
	}

	// Atomic writes land as extensionless temp files before the rename;
	// those must not trigger builds.
	if !strings.Contains(base, ".") {
		return
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	slog.Debug("Source change detected", "path", event.Name, "op", event.Op.String())
	err := w.bus.Publish(ctx, events.BuildRequested{
		Reason:      "file_change",
		Path:        event.Name,
		RequestedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("Could not publish build request", "error", err)
	}
}

// Close stops the underlying file system watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
