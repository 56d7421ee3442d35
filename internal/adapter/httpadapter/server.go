package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/pipeline"
)

// HotspotService is the request handler behind the hotspot API.
type HotspotService interface {
	View(ctx context.Context, req pipeline.ViewRequest) (pipeline.View, error)
	Select(ctx context.Context, req pipeline.SelectRequest) (domain.Details, bool, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the hotspot API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        HotspotService
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Forced refreshes are limited to
// refreshPerMinute requests per client IP.
func NewServer(addr string, svc HotspotService, refreshPerMinute int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second, // covers one upstream fetch
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	if refreshPerMinute <= 0 {
		refreshPerMinute = 6
	}
	refreshLimit := httprate.Limit(
		refreshPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)

	mux.HandleFunc("GET /api/v1/hotspots", s.handleView)
	mux.HandleFunc("GET /api/v1/hotspots/selection", s.handleSelect)
	mux.Handle("POST /api/v1/hotspots/refresh", refreshLimit(http.HandlerFunc(s.handleRefresh)))

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

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
