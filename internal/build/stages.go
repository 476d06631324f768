package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roboworks/maptransformer/internal/config"
	"github.com/roboworks/maptransformer/internal/doxyfile"
	"github.com/roboworks/maptransformer/internal/doxygen"
	"github.com/roboworks/maptransformer/internal/gitfetch"
	"github.com/roboworks/maptransformer/internal/metrics"
	"github.com/roboworks/maptransformer/internal/sphinx"
)

// Stage names one step of the build pipeline.
type Stage string

const (
	StageFetchRepo  Stage = "fetch_repo"
	StagePrepare    Stage = "prepare"
	StageDoxyfile   Stage = "doxyfile"
	StageDoxygen    Stage = "doxygen"
	StageVerify     Stage = "verify"
	StageSphinxConf Stage = "sphinx_config"
)

// StageFn performs one stage against the build state. A stage may pre-set
// its own result in the report (skip, warning); otherwise the runner records
// success or fatal.
type StageFn func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its implementation.
type StageDef struct {
	Name Stage
	Fn   StageFn
}

// State carries everything a stage needs.
type State struct {
	Cfg           *config.Config
	DocsDir       string // directory holding doxyfile.in; stages write here
	ForceGenerate bool

	// LocalSources marks builds over a tree already on disk. A configured
	// repository is not fetched then; watch mode sets this because its file
	// watches cover DocsDir, not a temp checkout.
	LocalSources bool

	Report   *Report
	Recorder metrics.Recorder
}

// Stages returns the pipeline for the given state, in execution order.
func Stages(st *State) []StageDef {
	defs := make([]StageDef, 0, 6)
	if st.Cfg.Repo != nil && !st.LocalSources {
		defs = append(defs, StageDef{StageFetchRepo, stageFetchRepo})
	}
	return append(defs,
		StageDef{StagePrepare, stagePrepare},
		StageDef{StageDoxyfile, stageDoxyfile},
		StageDef{StageDoxygen, stageDoxygen},
		StageDef{StageVerify, stageVerify},
		StageDef{StageSphinxConf, stageSphinxConf},
	)
}

// stageFetchRepo clones or updates the documented project so that hosted
// builds have the sources available.
func stageFetchRepo(ctx context.Context, st *State) error {
	fetcher := gitfetch.NewFetcher(filepath.Join(os.TempDir(), "mapdoc-checkout"))
	path, err := fetcher.Ensure(ctx, st.Cfg.Repo.URL, st.Cfg.Repo.Branch)
	if err != nil {
		return fmt.Errorf("fetch source repository: %w", err)
	}
	st.DocsDir = filepath.Join(path, st.Cfg.Output.Directory)
	slog.Info("Source repository ready", "path", path, "docs_dir", st.DocsDir)
	return nil
}

// stagePrepare checks the documentation directory and optionally cleans the
// generator output directory.
func stagePrepare(_ context.Context, st *State) error {
	info, err := os.Stat(st.DocsDir)
	if err != nil {
		return fmt.Errorf("documentation directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("documentation directory is not a directory: %s", st.DocsDir)
	}

	if st.Cfg.Output.Clean {
		outDir := filepath.Join(st.DocsDir, st.Cfg.Doxygen.OutputDir)
		if err := os.RemoveAll(outDir); err != nil {
			return fmt.Errorf("clean output directory: %w", err)
		}
		slog.Debug("Cleaned output directory", "dir", outDir)
	}
	return nil
}

// stageDoxyfile performs the template substitution producing the Doxyfile.
func stageDoxyfile(_ context.Context, st *State) error {
	templatePath := filepath.Join(st.DocsDir, st.Cfg.Doxygen.Template)
	path, err := doxyfile.Configure(templatePath, doxyfile.Substitution{
		InputDirs: doxyfile.JoinInputs(st.Cfg.Doxygen.Inputs),
		OutputDir: st.Cfg.Doxygen.OutputDir,
		Extra:     st.Cfg.Doxygen.Extra,
	})
	if err != nil {
		return err
	}
	st.Report.DoxyfilePath = path
	slog.Info("Generated Doxyfile", "path", path)
	return nil
}

// stageDoxygen invokes the external generator when the environment calls for
// it; otherwise the stage is recorded as skipped.
func stageDoxygen(ctx context.Context, st *State) error {
	runner := doxygen.NewRunner(st.Cfg.Doxygen.Binary, st.DocsDir)
	if !runner.ShouldRun(st.ForceGenerate) {
		st.Report.Results[StageDoxygen] = metrics.ResultSkipped
		st.Report.AddIssue(StageDoxygen, SeverityInfo, "doxygen invocation skipped")
		slog.Info("Skipping doxygen invocation",
			"hosted", st.Report.Hosted, "available", runner.Available())
		return nil
	}

	if version, err := runner.Version(ctx); err == nil {
		slog.Debug("Using doxygen", "version", version)
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}
	st.Report.DoxygenRan = true
	return nil
}

// stageVerify sanity-checks the generator output when it was produced.
func stageVerify(_ context.Context, st *State) error {
	if !st.Report.DoxygenRan {
		st.Report.Results[StageVerify] = metrics.ResultSkipped
		return nil
	}
	outDir := filepath.Join(st.DocsDir, st.Cfg.Doxygen.OutputDir)
	for _, issue := range verifyOutput(outDir) {
		st.Report.AddIssue(StageVerify, issue.Severity, issue.Message)
		if st.Report.Results[StageVerify] == "" && issue.Severity != SeverityInfo {
			st.Report.Results[StageVerify] = metrics.ResultWarning
		}
	}
	return nil
}

// stageSphinxConf writes conf.py and the stub index page.
func stageSphinxConf(_ context.Context, st *State) error {
	gen := sphinx.NewGenerator(st.Cfg, st.DocsDir)

	confPath, err := gen.WriteConf(st.Report.DoxygenRan)
	if err != nil {
		return err
	}
	st.Report.ConfPath = confPath
	slog.Info("Generated Sphinx configuration", "path", confPath)

	if indexPath, created, err := gen.EnsureIndex(); err != nil {
		return err
	} else if created {
		slog.Info("Created stub index page", "path", indexPath)
	}
	return nil
}
