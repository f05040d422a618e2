// Package api exposes the catalog, propagation and risk model over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/cache"
	"github.com/star/orbitrisk/internal/health"
	"github.com/star/orbitrisk/internal/ingest"
	"github.com/star/orbitrisk/internal/metrics"
	"github.com/star/orbitrisk/internal/propagation"
	"github.com/star/orbitrisk/internal/risk"
	"github.com/star/orbitrisk/internal/tle"
)

// Config holds HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TrustProxy   bool
	SampleFile   string // file served by the "sample" load source
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Store      *tle.Store
	Loader     *ingest.Loader
	Propagator *propagation.Propagator
	Tracks     *cache.TrackCache
	Logger     *zap.Logger
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(cfg, deps),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: deps.Logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(cfg Config, deps Deps) http.Handler {
	logger := deps.Logger
	checker := health.New(func() error {
		if deps.Store.Len() == 0 {
			return errors.New("TLE catalog is empty")
		}
		return nil
	})

	levels := make([]string, len(risk.Levels))
	for i, l := range risk.Levels {
		levels[i] = string(l)
	}
	metrics.InitRiskLevels(levels...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", checker.Healthz)
	mux.HandleFunc("GET /readyz", checker.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/tle/load", loadHandler(logger, deps.Loader, cfg.SampleFile))
	mux.HandleFunc("GET /api/v1/objects", listObjectsHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/objects/{norad_id}", objectHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/propagate/{norad_id}", propagateHandler(logger, deps.Store, deps.Tracks))
	mux.HandleFunc("GET /api/v1/positions", positionsHandler(deps.Propagator))
	mux.HandleFunc("GET /api/v1/risk/{norad_id}", riskHandler(logger, deps.Store))

	// Build middleware chain: metrics -> request id -> tracing -> logging -> recover -> mux.
	var handler http.Handler = mux
	handler = recoverMiddleware(logger)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}
