package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/drought-map/internal/domain"
)

// MapService produces drought maps on demand.
type MapService interface {
	LatestDate(ctx context.Context, ignoreCache bool) (domain.DatasetDate, error)
	Render(ctx context.Context, req domain.RenderRequest) error
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and map endpoints.
type Server struct {
	httpServer *http.Server
	maps       MapService
	mapsDir    string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /maps routes. Rendered images are kept under mapsDir and re-served until
// a refresh is requested.
func NewServer(addr string, maps MapService, ready ReadinessChecker, mapsDir string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		maps:    maps,
		mapsDir: mapsDir,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /maps/latest", s.handleLatestMap)
	mux.HandleFunc("GET /maps/{date}", s.handleDatedMap)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatestMap(w http.ResponseWriter, r *http.Request) {
	refresh := refreshRequested(r)

	date, err := s.maps.LatestDate(r.Context(), refresh)
	if err != nil {
		s.writeMapError(w, err)
		return
	}
	s.serveMap(w, r, date, refresh)
}

func (s *Server) handleDatedMap(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDatasetDate(r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.serveMap(w, r, date, refreshRequested(r))
}

// serveMap renders the map for a date unless a previous render is already
// on disk, then serves the file. ServeFile supplies Content-Type and
// Last-Modified from the rendered artifact.
func (s *Server) serveMap(w http.ResponseWriter, r *http.Request, date domain.DatasetDate, refresh bool) {
	outfile := filepath.Join(s.mapsDir, "USDM_"+date.Compact()+".png")

	if _, err := os.Stat(outfile); refresh || err != nil {
		if err := os.MkdirAll(s.mapsDir, 0o755); err != nil {
			s.writeMapError(w, &domain.StorageError{Op: "mkdir", Path: s.mapsDir, Err: err})
			return
		}
		req := domain.RenderRequest{Date: &date, Outfile: outfile, IgnoreCache: refresh}
		if err := s.maps.Render(r.Context(), req); err != nil {
			s.writeMapError(w, err)
			return
		}
	}

	http.ServeFile(w, r, outfile)
}

// writeMapError maps the error taxonomy onto status codes: upstream portal
// failures are a bad gateway, everything else is internal.
func (s *Server) writeMapError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		status = http.StatusBadGateway
	}

	s.logger.Error("map request failed", "error", err, "status", status)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func refreshRequested(r *http.Request) bool {
	return r.URL.Query().Get("refresh") == "1"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
