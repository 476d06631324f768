// Package gitfetch keeps a local checkout of the documented source
// repository up to date for builds that run outside a working copy.
package gitfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Fetcher clones repositories under a base directory and updates existing
// checkouts in place.
type Fetcher struct {
	baseDir string
}

// NewFetcher returns a fetcher placing checkouts under baseDir.
func NewFetcher(baseDir string) *Fetcher {
	return &Fetcher{baseDir: baseDir}
}

// Ensure makes sure a checkout of url at branch exists and is current, and
// returns its path. An existing checkout is pulled; otherwise a fresh clone
// is made.
func (f *Fetcher) Ensure(ctx context.Context, url, branch string) (string, error) {
	path := filepath.Join(f.baseDir, checkoutName(url))

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return path, f.clone(ctx, path, url, branch)
	}
	if err != nil {
		return "", fmt.Errorf("open checkout %s: %w", path, err)
	}
	return path, f.pull(ctx, repo, branch)
}

func (f *Fetcher) clone(ctx context.Context, path, url, branch string) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("create checkout base directory: %w", err)
	}
	slog.Info("Cloning source repository", "url", url, "branch", branch, "path", path)
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) pull(ctx context.Context, repo *git.Repository, branch string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		slog.Debug("Checkout already up to date", "branch", branch)
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull %s: %w", branch, err)
	}
	slog.Info("Updated source checkout", "branch", branch)
	return nil
}

// checkoutName derives a stable directory name from a repository URL.
func checkoutName(url string) string {
	name := strings.TrimSuffix(url, ".git")
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "checkout"
	}
	return name
}
