package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "project:\n  name: MapTransformer\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "MapTransformer", cfg.Project.Name)
	require.Equal(t, "1.0.0", cfg.Project.Release)
	require.Equal(t, "doxyfile.in", cfg.Doxygen.Template)
	require.Equal(t, []string{"../include", "../src"}, cfg.Doxygen.Inputs)
	require.Equal(t, "build", cfg.Doxygen.OutputDir)
	require.Equal(t, "doxygen", cfg.Doxygen.Binary)
	require.Equal(t, "sphinx_rtd_theme", cfg.Sphinx.Theme)
	require.Equal(t, []string{"breathe"}, cfg.Sphinx.Extensions)
	require.Equal(t, []string{"_build", "Thumbs.db", ".DS_Store"}, cfg.Sphinx.ExcludePatterns)
	require.Equal(t, "doc", cfg.Output.Directory)
	require.Positive(t, cfg.Watch.Debounce)
	require.Positive(t, cfg.Watch.MaxDelay)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("MAPDOC_TEST_RELEASE", "2.3.4")
	path := writeConfig(t, "project:\n  name: demo\n  release: ${MAPDOC_TEST_RELEASE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "2.3.4", cfg.Project.Release)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "configuration file not found")
}

func TestLoadValidatesNotify(t *testing.T) {
	path := writeConfig(t, "notify:\n  subject: custom.subject\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "notify.url is required")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapdoc.yaml")

	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "MapTransformer", cfg.Project.Name)

	require.ErrorContains(t, Init(path, false), "already exists")
	require.NoError(t, Init(path, true))
}

func TestHosted(t *testing.T) {
	t.Setenv("READTHEDOCS", "")
	t.Setenv("MAPDOC_HOSTED", "")
	require.False(t, Hosted())

	// Read the Docs sets the exact string "True"; other truthy spellings do
	// not count.
	t.Setenv("READTHEDOCS", "true")
	require.False(t, Hosted())
	t.Setenv("READTHEDOCS", "True")
	require.True(t, Hosted())

	t.Setenv("READTHEDOCS", "")
	t.Setenv("MAPDOC_HOSTED", "1")
	require.True(t, Hosted())
}
