// Package preview renders project Markdown pages for the watch-mode HTTP
// server, so READMEs and notes sit next to the generated documentation.
package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
pre { background: #f4f4f4; padding: 0.75rem; overflow-x: auto; }
code { background: #f4f4f4; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`

// Renderer converts Markdown files under a root directory to HTML pages.
type Renderer struct {
	root string
	md   goldmark.Markdown
	tmpl *template.Template
}

// NewRenderer returns a renderer serving Markdown files from root.
func NewRenderer(root string) *Renderer {
	return &Renderer{
		root: root,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithHardWraps()),
		),
		tmpl: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Render converts one Markdown document to a full HTML page.
func (r *Renderer) Render(title string, source []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	err := r.tmpl.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}

// ServeHTTP serves Markdown files relative to the renderer root. The request
// path "/" maps to README.md.
func (r *Renderer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rel := strings.TrimPrefix(path.Clean(req.URL.Path), "/")
	if rel == "" || rel == "." {
		rel = "README.md"
	}
	if strings.Contains(rel, "..") || !strings.HasSuffix(rel, ".md") {
		http.NotFound(w, req)
		return
	}

	source, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		http.NotFound(w, req)
		return
	}

	page, err := r.Render(strings.TrimSuffix(path.Base(rel), ".md"), source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
