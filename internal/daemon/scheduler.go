package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/roboworks/maptransformer/internal/daemon/events"
)

// Scheduler publishes periodic BuildRequested events so documentation is
// rebuilt even when nothing on disk changes (external includes, tag files).
type Scheduler struct {
	scheduler gocron.Scheduler
	bus       *events.Bus
}

// NewScheduler creates a scheduler publishing on the given bus.
func NewScheduler(bus *events.Bus) (*Scheduler, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, bus: bus}, nil
}

// SchedulePeriodicBuild registers a rebuild every interval. Returns the job
// ID for later management.
func (s *Scheduler) SchedulePeriodicBuild(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.requestBuild),
		gocron.WithName("periodic-build"),
	)
	if err != nil {
		return "", fmt.Errorf("create periodic build job: %w", err)
	}
	return job.ID().String(), nil
}

func (s *Scheduler) requestBuild() {
	slog.Debug("Requesting scheduled build")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.bus.Publish(ctx, events.BuildRequested{
		Reason:      "scheduled",
		RequestedAt: time.Now(),
	})
	if err != nil {
		slog.Error("Failed to publish scheduled build request", "error", err)
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
