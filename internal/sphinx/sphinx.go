// Package sphinx generates the Sphinx-side configuration consumed by the
// documentation renderer: a conf.py carrying the presentation settings and,
// when missing, a stub index page.
package sphinx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/natefinch/atomic"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roboworks/maptransformer/internal/config"
)

// confTemplate mirrors the conventional layout of a Sphinx conf.py wired to a
// Breathe/Doxygen project.
const confTemplate = `# Generated by mapdoc. Do not edit; changes are overwritten on the next build.

# -- Project information -----------------------------------------------------

project = '{{.Project}}'
copyright = '{{.Copyright}}'
author = '{{.Author}}'

# The full version, including alpha/beta/rc tags
release = '{{.Release}}'

# -- General configuration ---------------------------------------------------

extensions = [{{range $i, $e := .Extensions}}{{if $i}}, {{end}}'{{$e}}'{{end}}]

templates_path = ['{{.TemplatesPath}}']

exclude_patterns = [{{range $i, $e := .ExcludePatterns}}{{if $i}}, {{end}}'{{$e}}'{{end}}]

# -- Options for HTML output -------------------------------------------------

html_theme = '{{.Theme}}'
html_static_path = ['{{.StaticPath}}']
{{if .BreatheXMLDir}}
# -- Breathe -----------------------------------------------------------------

breathe_projects = {'{{.Project}}': '{{.BreatheXMLDir}}'}
breathe_default_project = '{{.Project}}'
{{end}}`

const indexTemplate = `{{.Title}}
{{.Underline}}

.. doxygenindex::
   :project: {{.Project}}
`

// Generator writes the Sphinx configuration for a documentation directory.
type Generator struct {
	cfg     *config.Config
	docsDir string
}

// NewGenerator returns a generator writing into docsDir.
func NewGenerator(cfg *config.Config, docsDir string) *Generator {
	return &Generator{cfg: cfg, docsDir: docsDir}
}

// confData is the template payload for conf.py.
type confData struct {
	Project         string
	Copyright       string
	Author          string
	Release         string
	Extensions      []string
	TemplatesPath   string
	ExcludePatterns []string
	Theme           string
	StaticPath      string
	BreatheXMLDir   string
}

// WriteConf renders conf.py. When generated is true the Doxygen XML output
// exists and the Breathe project mapping is included, pointing at
// <output_dir>/xml as the generator lays it out.
func (g *Generator) WriteConf(generated bool) (string, error) {
	data := confData{
		Project:         g.cfg.Project.Name,
		Copyright:       g.cfg.Project.Copyright,
		Author:          g.cfg.Project.Author,
		Release:         g.cfg.Project.Release,
		Extensions:      g.cfg.Sphinx.Extensions,
		TemplatesPath:   g.cfg.Sphinx.TemplatesPath,
		ExcludePatterns: g.cfg.Sphinx.ExcludePatterns,
		Theme:           g.cfg.Sphinx.Theme,
		StaticPath:      g.cfg.Sphinx.StaticPath,
	}
	if generated {
		data.BreatheXMLDir = g.cfg.Doxygen.OutputDir + "/xml"
	}

	rendered, err := render("conf.py", confTemplate, data)
	if err != nil {
		return "", err
	}

	path := filepath.Join(g.docsDir, "conf.py")
	if err := atomic.WriteFile(path, bytes.NewReader(rendered)); err != nil {
		return "", fmt.Errorf("write conf.py: %w", err)
	}
	return path, nil
}

// EnsureIndex writes a stub index.rst if none exists. An existing index is
// the project's own documentation entry point and is never touched.
func (g *Generator) EnsureIndex() (string, bool, error) {
	path := filepath.Join(g.docsDir, "index.rst")
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	title := DisplayTitle(g.cfg.Project.Name) + " documentation"
	rendered, err := render("index.rst", indexTemplate, map[string]string{
		"Title":     title,
		"Underline": strings.Repeat("=", len(title)),
		"Project":   g.cfg.Project.Name,
	})
	if err != nil {
		return "", false, err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(rendered)); err != nil {
		return "", false, fmt.Errorf("write index.rst: %w", err)
	}
	return path, true, nil
}

func render(name, tmpl string, data any) ([]byte, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

var titleCaser = cases.Title(language.English)

// DisplayTitle renders a project identifier as a display name: separators
// become spaces and each word is title-cased. Names already containing
// capitals are assumed to be deliberately cased and are kept as-is.
func DisplayTitle(name string) string {
	if name != strings.ToLower(name) {
		return name
	}
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(cleaned)
}
