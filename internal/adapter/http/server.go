package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
)

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RecentReadings serves the newest readings, oldest first.
type RecentReadings interface {
	FetchRecent(ctx context.Context, n int) ([]domain.Reading, error)
}

// Options wires the server to the rest of the service.
type Options struct {
	Ready    sharedobs.ReadinessChecker
	Store    Pinger
	Readings RecentReadings
	Alerts   domain.AlertStore

	// DefaultWindow is used by /api/v1/risk when no window is given.
	DefaultWindow int
}

// Server exposes the dashboard API alongside health, readiness and metrics endpoints.
type Server struct {
	httpServer    *http.Server
	logger        *slog.Logger
	readings      RecentReadings
	alerts        domain.AlertStore
	defaultWindow int
}

// NewServer creates an HTTP server with the operational and dashboard routes.
func NewServer(addr string, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	window := opts.DefaultWindow
	if window < minWindow || window > maxWindow {
		window = defaultWindow
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:        logger,
		readings:      opts.Readings,
		alerts:        opts.Alerts,
		defaultWindow: window,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(readiness{ready: opts.Ready, store: opts.Store}))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/risk", s.handleRisk)
	mux.HandleFunc("GET /api/v1/readings", s.handleReadings)
	mux.HandleFunc("GET /api/v1/alerts", s.handleListAlerts)
	mux.HandleFunc("POST /api/v1/alerts", s.handleCreateAlert)

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

// readiness requires both the pipeline and the store. Nil members are skipped.
type readiness struct {
	ready sharedobs.ReadinessChecker
	store Pinger
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if r.store != nil {
		if err := r.store.Ping(ctx); err != nil {
			return fmt.Errorf("store unavailable: %w", err)
		}
	}
	if r.ready != nil {
		return r.ready.CheckReadiness(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
