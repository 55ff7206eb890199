// Package server implements the HTTP API for retrace serve and the MCP
// server for retrace mcp. The REST surface exposes the same registry the
// TUI browses: sources, projects, session transcripts, search over the
// catalog, bookmarks, and export. A WebSocket endpoint streams live
// session updates to followers.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/retrace"

	_ "github.com/retracehq/retrace/internal/server/docs"
)

// DefaultPort is the port retrace serve binds when none is given.
const DefaultPort = 8484

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	// CORSOrigin is the Access-Control-Allow-Origin value. Empty disables
	// CORS headers entirely.
	CORSOrigin string

	// Quiet suppresses per-request logging.
	Quiet bool
}

// DefaultConfig returns the configuration retrace serve starts with.
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       DefaultPort,
		CORSOrigin: "*",
	}
}

// Server serves the REST API.
type Server struct {
	registry  *retrace.StoreRegistry
	bookmarks *bookmarks.Manager
	indexPath string
	router    chi.Router
	config    Config
}

// Option configures the server.
type Option func(*Server)

// WithBookmarks sets the bookmark store backing the bookmarks endpoints.
// Without one, listing returns empty and mutations fail with 503.
func WithBookmarks(m *bookmarks.Manager) Option {
	return func(s *Server) { s.bookmarks = m }
}

// WithIndexPath points the search endpoint at a specific catalog file
// instead of the default location.
func WithIndexPath(path string) Option {
	return func(s *Server) { s.indexPath = path }
}

// NewServer creates a new HTTP server over the given registry.
func NewServer(registry *retrace.StoreRegistry, config Config, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !s.config.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.config.CORSOrigin))
	r.Use(metricsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sources", s.handleGetSources)
		r.Get("/projects", s.handleGetProjects)
		r.Get("/projects/{projectID}/sessions", s.handleGetProjectSessions)
		r.Get("/sessions/{source}/{projectID}/{sessionID}", s.handleGetSession)
		r.Get("/sessions/{source}/{projectID}/{sessionID}/export", s.handleExportSession)
		r.Get("/sessions/{source}/{projectID}/{sessionID}/live", s.handleSessionLive)
		r.Get("/search", s.handleSearch)
		r.Get("/bookmarks", s.handleListBookmarks)
		r.Post("/bookmarks", s.handleCreateBookmark)
		r.Patch("/bookmarks/{bookmarkID}", s.handleUpdateBookmark)
		r.Delete("/bookmarks/{bookmarkID}", s.handleDeleteBookmark)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>retrace</title></head>
<body>
<h1>retrace server</h1>
<p>REST API: <a href="/api/v1/sources">/api/v1/sources</a></p>
<p>API docs: <a href="/swagger/">/swagger/</a></p>
<p>Metrics: <a href="/metrics">/metrics</a></p>
</body>
</html>`))
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// catalogPath returns the search catalog location, falling back to the
// default next to the config dir.
func (s *Server) catalogPath() (string, error) {
	if s.indexPath != "" {
		return s.indexPath, nil
	}
	return index.DefaultPath()
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled
// or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr(),
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Update port if it was auto-assigned
	if s.config.Port == 0 {
		s.config.Port = ln.Addr().(*net.TCPAddr).Port
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("retrace server running at http://%s\n", s.Addr())
	return srv.Serve(ln)
}

// corsMiddleware adds CORS headers for the given origin. An empty origin
// disables the headers and lets OPTIONS requests fall through.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
