// Package server exposes the risk monitor over HTTP: point-in-time
// snapshot views, position health, archived summaries, and liquidation
// and governance passthroughs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/evcache"
	"lending-risk-monitor/internal/indexer"
	"lending-risk-monitor/internal/observability"
	"lending-risk-monitor/internal/snapshot"
	"lending-risk-monitor/internal/storage"
)

// Config holds server configuration
type Config struct {
	Port         int
	Log          zerolog.Logger
	Orchestrator *snapshot.Orchestrator
	Cache        *evcache.Cache
	Indexer      *indexer.Client
	Archive      storage.SummaryArchiveStore // optional
	Series       storage.RangeSeriesStore    // optional
	DevMode      bool
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	orch    *snapshot.Orchestrator
	cache   *evcache.Cache
	indexer *indexer.Client
	archive storage.SummaryArchiveStore
	series  storage.RangeSeriesStore
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		orch:    cfg.Orchestrator,
		cache:   cfg.Cache,
		indexer: cfg.Indexer,
		archive: cfg.Archive,
		series:  cfg.Series,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // range sweeps can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", observability.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/snapshot/{block}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/summary", s.handleSummary)
			r.Get("/health-factors", s.handleHealthFactors)
			r.Get("/vaults", s.handleVaultSet)
			r.Get("/prices", s.handlePrices)
		})
		r.Get("/compare", s.handleCompare)
		r.Get("/range", s.handleRange)

		r.Get("/latest/metrics", s.handleLatestMetrics)
		r.Get("/latest/vaults", s.handleLatestVaults)

		r.Get("/liquidations/external", s.handleExternalLiquidations)
		r.Get("/liquidations/internal", s.handleInternalLiquidations)
		r.Get("/governance/{eventType}", s.handleGovEvents)

		r.Route("/archive", func(r chi.Router) {
			r.Get("/latest", s.handleArchiveLatest)
			r.Get("/range", s.handleArchiveRange)
			r.Get("/{block}", s.handleArchiveByBlock)
		})
		r.Get("/series", s.handleSeries)
	})
}

// Router returns the chi router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
