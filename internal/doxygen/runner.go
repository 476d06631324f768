// Package doxygen invokes the external doxygen binary.
package doxygen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/roboworks/maptransformer/internal/config"
)

// Runner executes doxygen in a documentation directory. Doxygen reads its
// configuration from the Doxyfile in that directory.
type Runner struct {
	Binary string // binary name or path, defaults to "doxygen"
	Dir    string // working directory for the invocation
}

// NewRunner returns a runner for the given documentation directory.
func NewRunner(binary, dir string) *Runner {
	if binary == "" {
		binary = "doxygen"
	}
	return &Runner{Binary: binary, Dir: dir}
}

// Available reports whether the doxygen binary can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

// ShouldRun determines whether the doxygen binary should be invoked.
// Generation runs on hosted documentation builds and when forced via
// MAPDOC_RUN_DOXYGEN=1, unless MAPDOC_SKIP_DOXYGEN=1.
func (r *Runner) ShouldRun(force bool) bool {
	if os.Getenv("MAPDOC_SKIP_DOXYGEN") == "1" {
		return false
	}
	if !force && !config.Hosted() && os.Getenv("MAPDOC_RUN_DOXYGEN") != "1" {
		return false
	}
	return r.Available()
}

// Run executes doxygen synchronously, waiting for it to complete. Output is
// passed through to the parent process streams.
func (r *Runner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Binary)
	cmd.Dir = r.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("Running doxygen", "binary", r.Binary, "dir", r.Dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("doxygen command failed: %w", err)
	}
	return nil
}

// Version returns the version string reported by the doxygen binary.
func (r *Runner) Version(ctx context.Context) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, "--version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("doxygen --version: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}
