package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roboworks/maptransformer/internal/history"
	"github.com/roboworks/maptransformer/internal/preview"
)

// ServerConfig configures the watch-mode HTTP server.
type ServerConfig struct {
	Addr     string
	HTMLDir  string // generated HTML output, served under /docs/
	PagesDir string // Markdown pages, served under /pages/
	Registry *prom.Registry
	History  *history.Store // optional, enables /builds
}

// Server is the local preview server run alongside the file watcher. It
// serves the generated documentation, rendered Markdown pages, health and
// metrics endpoints, and recent build results.
type Server struct {
	cfg  ServerConfig
	http *http.Server
}

// NewServer assembles the server routes.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
	})

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	mux.Handle("/docs/", http.StripPrefix("/docs/", http.FileServer(http.Dir(cfg.HTMLDir))))
	mux.Handle("/pages/", http.StripPrefix("/pages/", preview.NewRenderer(cfg.PagesDir)))

	if cfg.History != nil {
		mux.HandleFunc("/builds", func(w http.ResponseWriter, r *http.Request) {
			records, err := cfg.History.Recent(r.Context(), 20)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(records)
		})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/docs/", http.StatusFound)
	})

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() {
	go func() {
		slog.Info("Preview server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
