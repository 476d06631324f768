package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/roboworks/maptransformer"
	"github.com/roboworks/maptransformer/internal/build"
	"github.com/roboworks/maptransformer/internal/config"
	"github.com/roboworks/maptransformer/internal/daemon"
	"github.com/roboworks/maptransformer/internal/history"
	"github.com/roboworks/maptransformer/internal/metrics"
	"github.com/roboworks/maptransformer/internal/notify"
	"github.com/roboworks/maptransformer/internal/svg"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"mapdoc.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Docs          string `short:"d" help:"Documentation directory (overrides output.directory)"`
		ForceGenerate bool   `short:"f" help:"Run doxygen even outside a hosted build environment"`
	} `cmd:"" help:"Run one documentation build"`

	Watch struct {
		Docs string `short:"d" help:"Documentation directory (overrides output.directory)"`
	} `cmd:"" help:"Watch sources, rebuild on change and serve a local preview"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Transform struct {
		Map     string    `short:"m" required:"" help:"YAML file containing the map information"`
		ToRobot bool      `help:"Transform from the reference map to the robot map"`
		Point   []float64 `arg:"" help:"Point to transform (x y)"`
	} `cmd:"" help:"Transform a point between the reference and robot maps"`

	Inspect struct {
		Map string `short:"m" required:"" help:"YAML file containing the map information"`
	} `cmd:"" help:"Print a summary of a map pair"`

	Visualize struct {
		Map             string `short:"m" required:"" help:"YAML file containing the map information"`
		Out             string `short:"o" help:"Output directory for the overlays" default:"overlays"`
		CorrPoints      bool   `short:"p" help:"Draw the correspondence points"`
		Triangulation   bool   `short:"t" help:"Draw the Delaunay triangulation"`
		NumberTriangles bool   `short:"n" help:"Number the Delaunay triangles"`
	} `cmd:"" help:"Render SVG overlays of the correspondence points and triangulation"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "watch":
		err = runWatch()
	case "init":
		err = runInit()
	case "transform <point>":
		err = runTransform()
	case "inspect":
		err = runInspect()
	case "visualize":
		err = runVisualize()
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func resolveDocsDir(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Output.Directory
}

// assembleService wires the build service with the optional sinks from the
// configuration. The returned cleanup must run after the last build.
func assembleService(cfg *config.Config, docsDir string, recorder metrics.Recorder, extra ...build.Option) (*build.Service, *history.Store, func(), error) {
	opts := []build.Option{build.WithRecorder(recorder)}
	opts = append(opts, extra...)
	var cleanups []func()

	var store *history.Store
	if cfg.History.Path != "" {
		var err error
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open build history: %w", err)
		}
		cleanups = append(cleanups, func() { _ = store.Close() })
		opts = append(opts, build.WithArchiver(historyArchiver{store: store}))
	}

	if cfg.Notify != nil {
		publisher, err := notify.NewPublisher(cfg.Notify)
		if err != nil {
			for _, c := range cleanups {
				c()
			}
			return nil, nil, nil, fmt.Errorf("connect notifier: %w", err)
		}
		cleanups = append(cleanups, publisher.Close)
		opts = append(opts, build.WithNotifier(natsNotifier{publisher: publisher}))
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return build.NewService(cfg, docsDir, opts...), store, cleanup, nil
}

func runBuild() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	docsDir := resolveDocsDir(cfg, CLI.Build.Docs)

	svc, _, cleanup, err := assembleService(cfg, docsDir, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := svc.Build(ctx, CLI.Build.ForceGenerate)
	if err != nil {
		return err
	}
	for _, issue := range report.Issues {
		slog.Info("Build issue", "stage", issue.Stage, "severity", issue.Severity, "message", issue.Message)
	}
	return nil
}

func runWatch() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	docsDir := resolveDocsDir(cfg, CLI.Watch.Docs)

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	// Watch mode builds the tree the watcher covers, never a fetched checkout.
	svc, store, cleanup, err := assembleService(cfg, docsDir, recorder, build.WithLocalSources())
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(cfg, docsDir, svc, registry, store)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.Run(ctx)
}

func runInit() error {
	slog.Info("Initializing configuration", "path", CLI.Config, "force", CLI.Init.Force)
	return config.Init(CLI.Config, CLI.Init.Force)
}

func loadTransformer(path string) (*maptransformer.Transformer, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map information file: %w", err)
	}
	t, err := maptransformer.Load(doc)
	if err != nil {
		return nil, fmt.Errorf("load map information: %w", err)
	}
	return t, nil
}

func runTransform() error {
	if len(CLI.Transform.Point) != 2 {
		return fmt.Errorf("expected a point as two values, got %d", len(CLI.Transform.Point))
	}
	t, err := loadTransformer(CLI.Transform.Map)
	if err != nil {
		return err
	}

	point := maptransformer.Point{X: CLI.Transform.Point[0], Y: CLI.Transform.Point[1]}
	var result maptransformer.Point
	if CLI.Transform.ToRobot {
		result, err = t.ToRobot(point)
	} else {
		result, err = t.ToRef(point)
	}
	if err != nil {
		return err
	}

	from, to := "robot", "reference"
	if CLI.Transform.ToRobot {
		from, to = "reference", "robot"
	}
	fmt.Printf("Transformed %g, %g (%s) to %g, %g (%s)\n",
		point.X, point.Y, from, result.X, result.Y, to)
	return nil
}

func runInspect() error {
	t, err := loadTransformer(CLI.Inspect.Map)
	if err != nil {
		return err
	}

	refMap, robotMap := t.RefMap(), t.RobotMap()
	transform := t.MapTransform()
	min, max := t.BoundingBox()

	fmt.Printf("Reference map: %s (%gx%g)", refMap.Name, refMap.Size.X, refMap.Size.Y)
	if refMap.ImageFile != "" {
		fmt.Printf(" image %s", refMap.ImageFile)
	}
	fmt.Println()
	fmt.Printf("Robot map:     %s (%gx%g)", robotMap.Name, robotMap.Size.X, robotMap.Size.Y)
	if robotMap.ImageFile != "" {
		fmt.Printf(" image %s", robotMap.ImageFile)
	}
	fmt.Println()
	fmt.Printf("Transform:     scale %s, rotation %g, translation %s\n",
		transform.Scale, transform.Rotation, transform.Translation)
	fmt.Printf("Correspondence points: %d\n", len(t.RefCorrespondencePoints()))
	fmt.Printf("Triangles:             %d\n", len(t.Triangles()))
	fmt.Printf("Bounding box:          %s to %s\n", min, max)
	return nil
}

func runVisualize() error {
	t, err := loadTransformer(CLI.Visualize.Map)
	if err != nil {
		return err
	}

	paths, err := svg.WriteMapOverlays(t, CLI.Visualize.Out,
		CLI.Visualize.CorrPoints, CLI.Visualize.Triangulation, CLI.Visualize.NumberTriangles)
	if err != nil {
		return err
	}
	for _, p := range paths {
		slog.Info("Wrote overlay", "path", p)
	}
	return nil
}

// historyArchiver stores finished reports in the SQLite build history.
type historyArchiver struct {
	store *history.Store
}

func (a historyArchiver) Archive(ctx context.Context, report *build.Report) error {
	return a.store.Add(ctx, history.Record{
		BuildID:    report.BuildID,
		Outcome:    string(report.Outcome),
		Hosted:     report.Hosted,
		DoxygenRan: report.DoxygenRan,
		StartedAt:  report.StartedAt,
		Duration:   report.Duration,
		Detail:     history.DetailJSON(report),
	})
}

// natsNotifier publishes finished reports as build events.
type natsNotifier struct {
	publisher *notify.Publisher
}

func (n natsNotifier) BuildFinished(ctx context.Context, report *build.Report) error {
	event := notify.BuildEvent{
		BuildID:    report.BuildID,
		Outcome:    string(report.Outcome),
		Hosted:     report.Hosted,
		DoxygenRan: report.DoxygenRan,
		Duration:   report.Duration,
		Timestamp:  report.FinishedAt,
	}
	for _, issue := range report.Issues {
		if issue.Severity != build.SeverityInfo {
			event.Issues = append(event.Issues, fmt.Sprintf("%s: %s", issue.Stage, issue.Message))
		}
	}
	return n.publisher.Publish(ctx, event)
}
