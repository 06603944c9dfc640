// Package http serves the flood event API, the region geometry document, and
// the operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/observability"
)

// maxBodyBytes caps POST /events request bodies.
const maxBodyBytes = 1 << 20

// EventService answers event queries and records new events.
type EventService interface {
	ListEvents(ctx context.Context, q domain.RegionQuery) ([]domain.Event, error)
	CreateEvent(ctx context.Context, in domain.EventInput) (domain.Event, error)
}

// GeometrySource provides the region geometry document.
type GeometrySource interface {
	Raw() []byte
	Names() []string
}

// Config holds the listener and cross-origin settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server exposes the event API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	events     EventService
	geometry   GeometrySource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the event, geometry, and operational routes.
func NewServer(cfg Config, events EventService, geometry GeometrySource, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		events:   events,
		geometry: geometry,
		logger:   logger,
	}

	mux.HandleFunc("GET /events", s.handleListEvents)
	mux.HandleFunc("POST /events", s.handleCreateEvent)
	mux.HandleFunc("GET /ghana-geometry", s.handleGeometry)
	mux.HandleFunc("GET /regions", s.handleRegions)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := chain(mux,
		RequestID,
		Tracing,
		CORS(cfg.AllowedOrigins),
		Logging(logger),
		Metrics(metrics),
		RouteSpanName,
	)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
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

// chain wraps h so the first middleware is outermost.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
