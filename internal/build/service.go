package build

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roboworks/maptransformer/internal/config"
	"github.com/roboworks/maptransformer/internal/metrics"
)

// Archiver persists finished build reports.
type Archiver interface {
	Archive(ctx context.Context, report *Report) error
}

// Notifier announces finished builds to interested parties.
type Notifier interface {
	BuildFinished(ctx context.Context, report *Report) error
}

// Service runs documentation builds and fans the results out to the
// configured sinks. Archiver and Notifier are optional.
type Service struct {
	cfg          *config.Config
	docsDir      string
	recorder     metrics.Recorder
	archiver     Archiver
	notifier     Notifier
	localSources bool
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithArchiver sets the report archive.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithNotifier sets the build notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLocalSources makes builds use the sources in docsDir even when a
// repository is configured. Watch mode needs this: its file watches cover
// docsDir, so fetching into a temp checkout would build a tree the watcher
// never sees.
func WithLocalSources() Option {
	return func(s *Service) { s.localSources = true }
}

// NewService constructs a build service for the given configuration. docsDir
// is the directory holding the Doxyfile template and Sphinx sources.
func NewService(cfg *config.Config, docsDir string, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		docsDir:  docsDir,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build runs one complete build and returns its report. The report is
// returned even when the build fails.
func (s *Service) Build(ctx context.Context, force bool) (*Report, error) {
	hosted := config.Hosted()
	report := NewReport(uuid.NewString(), hosted)
	slog.Info("Starting build", "build_id", report.BuildID, "hosted", hosted, "force", force)

	st := &State{
		Cfg:           s.cfg,
		DocsDir:       s.docsDir,
		ForceGenerate: force,
		LocalSources:  s.localSources,
		Report:        report,
		Recorder:      s.recorder,
	}
	runErr := Run(ctx, st)

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, report); err != nil {
			slog.Warn("Failed to archive build report", "build_id", report.BuildID, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.BuildFinished(ctx, report); err != nil {
			slog.Warn("Failed to publish build notification", "build_id", report.BuildID, "error", err)
		}
	}

	slog.Info("Build finished",
		"build_id", report.BuildID,
		"outcome", report.Outcome,
		"duration", report.Duration,
		"doxygen_ran", report.DoxygenRan)
	return report, runErr
}
