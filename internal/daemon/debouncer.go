package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roboworks/maptransformer/internal/daemon/events"
)

type DebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration

	// CheckBuildRunning reports whether a build is currently running. When
	// true, the debouncer withholds BuildNow and schedules exactly one
	// follow-up build after the running build finishes.
	CheckBuildRunning func() bool

	// PollInterval controls how often the debouncer polls for build
	// completion once it has detected a running build.
	PollInterval time.Duration
}

// Debouncer coalesces bursts of BuildRequested events into a single BuildNow.
//
//   - quiet window debounce
//   - max delay (a rebuild cannot be postponed indefinitely)
//   - if a build is already running, queue exactly one follow-up
//
// It is safe to run as a single goroutine.
type Debouncer struct {
	bus *events.Bus
	cfg DebouncerConfig

	mu        sync.Mutex
	readyOnce sync.Once
	ready     chan struct{}

	pending         bool
	pendingAfterRun bool
	firstRequestAt  time.Time
	lastRequestAt   time.Time
	lastReason      string
	lastPath        string
	requestCount    int
	pollingAfterRun bool
}

func NewDebouncer(bus *events.Bus, cfg DebouncerConfig) (*Debouncer, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if cfg.QuietWindow <= 0 {
		return nil, fmt.Errorf("quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, fmt.Errorf("max delay must be > 0")
	}
	if cfg.CheckBuildRunning == nil {
		cfg.CheckBuildRunning = func() bool { return false }
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}

	return &Debouncer{bus: bus, cfg: cfg, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has subscribed to events. Intended for tests and
// deterministic startup sequencing.
func (d *Debouncer) Ready() <-chan struct{} {
	return d.ready
}

func (d *Debouncer) Run(ctx context.Context) error {
	reqCh, unsubscribe := events.Subscribe[events.BuildRequested](d.bus, 64)
	defer unsubscribe()

	d.readyOnce.Do(func() { close(d.ready) })

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	pollTimer := newStoppedTimer()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
		pollC  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-reqCh:
			if !ok {
				return nil
			}
			d.onRequest(req)

			if req.Immediate {
				if d.tryEmit(ctx, "immediate") {
					quietC = nil
					maxC = nil
				}
				break
			}

			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C

			if d.shouldStartMaxTimer() {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			if d.tryEmit(ctx, "quiet") {
				quietC = nil
				maxC = nil
			}
			// else: build running; pendingAfterRun stays set until completion.

		case <-maxC:
			if d.tryEmit(ctx, "max_delay") {
				quietC = nil
				maxC = nil
			}

		case <-pollC:
			if d.tryEmitAfterRunning(ctx) {
				pollC = nil
				quietC = nil
				maxC = nil
				continue
			}
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}

		// Start polling only once a follow-up is queued.
		if d.shouldPollAfterRun() && pollC == nil {
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}
	}
}

func (d *Debouncer) onRequest(req events.BuildRequested) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := req.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	if !d.pending {
		d.pending = true
		d.firstRequestAt = now
		d.requestCount = 0
	}

	d.lastRequestAt = now
	d.lastReason = req.Reason
	d.lastPath = req.Path
	d.requestCount++
}

func (d *Debouncer) shouldStartMaxTimer() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending && d.requestCount == 1
}

func (d *Debouncer) shouldPollAfterRun() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingAfterRun && !d.pollingAfterRun
}

func (d *Debouncer) tryEmit(ctx context.Context, cause string) bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return true
	}
	first := d.firstRequestAt
	last := d.lastRequestAt
	count := d.requestCount
	reason := d.lastReason
	path := d.lastPath

	if d.cfg.CheckBuildRunning() {
		d.pendingAfterRun = true
		d.mu.Unlock()
		return false
	}

	d.pending = false
	d.pendingAfterRun = false
	d.pollingAfterRun = false
	d.mu.Unlock()

	if err := d.bus.Publish(ctx, events.BuildNow{
		TriggeredAt:   time.Now(),
		RequestCount:  count,
		LastReason:    reason,
		LastPath:      path,
		FirstRequest:  first,
		LastRequest:   last,
		DebounceCause: cause,
	}); err != nil {
		slog.Warn("Could not publish build decision", "cause", cause, "error", err)
	}
	return true
}

func (d *Debouncer) tryEmitAfterRunning(ctx context.Context) bool {
	d.mu.Lock()
	if !d.pendingAfterRun {
		d.mu.Unlock()
		return true
	}
	d.pollingAfterRun = true
	d.mu.Unlock()

	if d.cfg.CheckBuildRunning() {
		return false
	}

	// Build finished; emit exactly one follow-up.
	return d.tryEmit(ctx, "after_running")
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
