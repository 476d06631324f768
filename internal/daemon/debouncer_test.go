package daemon

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roboworks/maptransformer/internal/daemon/events"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startDebouncer(t *testing.T, bus *events.Bus, cfg DebouncerConfig) {
	t.Helper()
	debouncer, err := NewDebouncer(bus, cfg)
	require.NoError(t, err)

	go func() { _ = debouncer.Run(t.Context()) }()

	select {
	case <-debouncer.Ready():
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer ready")
	}
}

func TestDebouncerBurstCoalescesToSingleBuild(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var running atomic.Bool
	startDebouncer(t, bus, DebouncerConfig{
		QuietWindow:       25 * time.Millisecond,
		MaxDelay:          200 * time.Millisecond,
		CheckBuildRunning: running.Load,
		PollInterval:      10 * time.Millisecond,
	})

	buildNowCh, unsub := events.Subscribe[events.BuildNow](bus, 10)
	defer unsub()

	for range 5 {
		require.NoError(t, bus.Publish(context.Background(), events.BuildRequested{Reason: "file_change"}))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-buildNowCh:
		require.GreaterOrEqual(t, got.RequestCount, 1)
		require.Equal(t, "file_change", got.LastReason)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for BuildNow")
	}

	select {
	case <-buildNowCh:
		t.Fatal("expected only one BuildNow for burst")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncerMaxDelayForcesBuild(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var running atomic.Bool
	startDebouncer(t, bus, DebouncerConfig{
		QuietWindow:       200 * time.Millisecond, // would postpone forever if requests keep coming
		MaxDelay:          60 * time.Millisecond,
		CheckBuildRunning: running.Load,
		PollInterval:      10 * time.Millisecond,
	})

	buildNowCh, unsub := events.Subscribe[events.BuildNow](bus, 10)
	defer unsub()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, bus.Publish(context.Background(), events.BuildRequested{Reason: "file_change"}))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case got := <-buildNowCh:
		require.Equal(t, "max_delay", got.DebounceCause)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for max-delay BuildNow")
	}
}

func TestDebouncerBuildRunningQueuesOneFollowUp(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var running atomic.Bool
	running.Store(true)

	startDebouncer(t, bus, DebouncerConfig{
		QuietWindow:       20 * time.Millisecond,
		MaxDelay:          50 * time.Millisecond,
		CheckBuildRunning: running.Load,
		PollInterval:      10 * time.Millisecond,
	})

	buildNowCh, unsub := events.Subscribe[events.BuildNow](bus, 10)
	defer unsub()

	for range 10 {
		require.NoError(t, bus.Publish(context.Background(), events.BuildRequested{Reason: "file_change"}))
	}

	select {
	case <-buildNowCh:
		t.Fatal("expected no BuildNow while build is running")
	case <-time.After(100 * time.Millisecond):
	}

	running.Store(false)

	select {
	case <-buildNowCh:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for follow-up BuildNow")
	}

	select {
	case <-buildNowCh:
		t.Fatal("expected exactly one follow-up BuildNow")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncerLogsDroppedBuildDecision(t *testing.T) {
	logs := &logBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	bus := events.NewBus()
	defer bus.Close()

	debouncer, err := NewDebouncer(bus, DebouncerConfig{
		QuietWindow: 20 * time.Millisecond,
		MaxDelay:    100 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = debouncer.Run(ctx)
	}()
	select {
	case <-debouncer.Ready():
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer ready")
	}

	// An unbuffered subscriber that never reads keeps the BuildNow publish
	// blocked until the context is canceled.
	_, unsub := events.Subscribe[events.BuildNow](bus, 0)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), events.BuildRequested{Reason: "manual", Immediate: true}))

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer to stop")
	}
	require.Contains(t, logs.String(), "Could not publish build decision")
}

func TestDebouncerImmediateEmitsBuildNow(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var running atomic.Bool
	startDebouncer(t, bus, DebouncerConfig{
		QuietWindow:       200 * time.Millisecond,
		MaxDelay:          500 * time.Millisecond,
		CheckBuildRunning: running.Load,
		PollInterval:      10 * time.Millisecond,
	})

	buildNowCh, unsub := events.Subscribe[events.BuildNow](bus, 10)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), events.BuildRequested{Reason: "manual", Immediate: true}))

	select {
	case got := <-buildNowCh:
		require.Equal(t, "immediate", got.DebounceCause)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for immediate BuildNow")
	}
}
