package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/domain"
	"github.com/couchcryptid/pop-status-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusService runs the report and override flows.
type StatusService interface {
	Report(ctx context.Context, scrape bool) (domain.StatusReport, error)
	Mutate(ctx context.Context, rawQuery string) (domain.OverrideMap, error)
}

// Server exposes the status routes plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        StatusService
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /noscrape, /set_pop, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc StatusService, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:     svc,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("/{$}", allowRead(s.handleReport(routeReport, true)))
	mux.Handle("/noscrape", allowRead(s.handleReport(routeNoScrape, false)))
	mux.Handle("/set_pop", allowRead(http.HandlerFunc(s.handleSetPop)))
	mux.HandleFunc("/", handleNotFound)

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
