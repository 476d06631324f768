package gitfetch

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com"},
	})
	require.NoError(t, err)
	return dir
}

func TestEnsureClonesAndPulls(t *testing.T) {
	src := initSourceRepo(t)
	fetcher := NewFetcher(t.TempDir())

	path, err := fetcher.Ensure(t.Context(), src, "master")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(path, "README.md"))

	// Second call finds the checkout and pulls; nothing changed upstream.
	again, err := fetcher.Ensure(t.Context(), src, "master")
	require.NoError(t, err)
	require.Equal(t, path, again)
}

func TestCheckoutName(t *testing.T) {
	cases := map[string]string{
		"https://example.com/org/maps.git": "maps",
		"git@example.com:org/maps.git":     "maps",
		"/srv/repos/fieldmaps":             "fieldmaps",
		"":                                 "checkout",
	}
	for url, want := range cases {
		require.Equal(t, want, checkoutName(url), url)
	}
}
