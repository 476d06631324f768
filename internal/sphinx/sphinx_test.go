package sphinx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roboworks/maptransformer/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{
			Name:      "MapTransformer",
			Author:    "Geoffrey Biggs",
			Copyright: "2020, Geoffrey Biggs",
			Release:   "1.0.0",
		},
		Doxygen: config.DoxygenConfig{OutputDir: "build"},
		Sphinx: config.SphinxConfig{
			Theme:           "sphinx_rtd_theme",
			Extensions:      []string{"breathe"},
			TemplatesPath:   "_templates",
			StaticPath:      "_static",
			ExcludePatterns: []string{"_build", "Thumbs.db", ".DS_Store"},
		},
	}
}

func TestWriteConf(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(testConfig(), dir)

	path, err := g.WriteConf(true)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "conf.py"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	conf := string(content)

	require.Contains(t, conf, "project = 'MapTransformer'")
	require.Contains(t, conf, "copyright = '2020, Geoffrey Biggs'")
	require.Contains(t, conf, "author = 'Geoffrey Biggs'")
	require.Contains(t, conf, "release = '1.0.0'")
	require.Contains(t, conf, "extensions = ['breathe']")
	require.Contains(t, conf, "exclude_patterns = ['_build', 'Thumbs.db', '.DS_Store']")
	require.Contains(t, conf, "html_theme = 'sphinx_rtd_theme'")
	require.Contains(t, conf, "breathe_projects = {'MapTransformer': 'build/xml'}")
	require.Contains(t, conf, "breathe_default_project = 'MapTransformer'")
}

func TestWriteConfWithoutGeneratedOutput(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(testConfig(), dir)

	path, err := g.WriteConf(false)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(content), "breathe_projects")
}

func TestEnsureIndex(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(testConfig(), dir)

	path, created, err := g.EnsureIndex()
	require.NoError(t, err)
	require.True(t, created)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "MapTransformer documentation")
	require.Contains(t, string(content), ":project: MapTransformer")

	// An existing index is never overwritten.
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o644))
	_, created, err = g.EnsureIndex()
	require.NoError(t, err)
	require.False(t, created)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "custom", string(content))
}

func TestDisplayTitle(t *testing.T) {
	require.Equal(t, "MapTransformer", DisplayTitle("MapTransformer"))
	require.Equal(t, "Map Transformer", DisplayTitle("map-transformer"))
	require.Equal(t, "Map Transformer", DisplayTitle("map_transformer"))
}
