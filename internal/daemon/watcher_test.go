package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roboworks/maptransformer/internal/daemon/events"
)

func TestWatcherPublishesOnSourceChange(t *testing.T) {
	root := t.TempDir()
	bus := events.NewBus()
	defer bus.Close()

	w, err := NewWatcher(bus, []string{root}, nil)
	require.NoError(t, err)
	defer w.Close()

	reqCh, unsub := events.Subscribe[events.BuildRequested](bus, 10)
	defer unsub()

	go func() { _ = w.Run(t.Context()) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "map.yaml"), []byte("ref_map:\n"), 0o644))

	select {
	case got := <-reqCh:
		require.Equal(t, "file_change", got.Reason)
		require.Equal(t, filepath.Join(root, "map.yaml"), got.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for build request")
	}
}

func TestWatcherIgnoresGeneratedArtifacts(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "build")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	bus := events.NewBus()
	defer bus.Close()

	w, err := NewWatcher(bus, []string{root}, []string{outDir, filepath.Join(root, "conf.py")})
	require.NoError(t, err)
	defer w.Close()

	reqCh, unsub := events.Subscribe[events.BuildRequested](bus, 10)
	defer unsub()

	go func() { _ = w.Run(t.Context()) }()

	require.NoError(t, os.WriteFile(filepath.Join(outDir, "index.html"), []byte("<html/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf.py"), []byte("project = 'x'"), 0o644))

	select {
	case got := <-reqCh:
		t.Fatalf("unexpected build request for %s", got.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	bus := events.NewBus()
	defer bus.Close()

	w, err := NewWatcher(bus, []string{root}, nil)
	require.NoError(t, err)
	defer w.Close()

	reqCh, unsub := events.Subscribe[events.BuildRequested](bus, 10)
	defer unsub()

	go func() { _ = w.Run(t.Context()) }()

	// Extensionless files are treated as in-flight atomic writes.
	require.NoError(t, os.WriteFile(filepath.Join(root, "1234567890"), []byte("tmp"), 0o644))

	select {
	case got := <-reqCh:
		t.Fatalf("unexpected build request for %s", got.Path)
	case <-time.After(300 * time.Millisecond):
	}
}
