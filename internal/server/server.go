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

	"github.com/foliotrader/folio/internal/modules/currency"
	"github.com/foliotrader/folio/internal/modules/dividends"
	"github.com/foliotrader/folio/internal/modules/optimization"
	"github.com/foliotrader/folio/internal/modules/orders"
	"github.com/foliotrader/folio/internal/modules/portfolio"
	"github.com/foliotrader/folio/internal/modules/rebalancing"
	"github.com/foliotrader/folio/internal/modules/simulation"
	"github.com/foliotrader/folio/internal/modules/universe"
	"github.com/foliotrader/folio/internal/scheduler"
)

// Handlers collects the per-module HTTP handlers the server mounts.
type Handlers struct {
	Portfolio    *portfolio.Handler
	Orders       *orders.Handler
	Universe     *universe.Handler
	Optimization *optimization.Handler
	Simulation   *simulation.Handler
	Rebalancing  *rebalancing.Handler
	Dividends    *dividends.Handler
	Currency     *currency.Handler
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	Handlers Handlers
	DevMode  bool

	// Scheduler and SnapshotJob back the on-demand snapshot trigger on
	// the system API. Both optional; the route 503s without them.
	Scheduler   *scheduler.Scheduler
	SnapshotJob scheduler.Job
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	port        int
	scheduler   *scheduler.Scheduler
	snapshotJob scheduler.Job
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		port:        cfg.Port,
		scheduler:   cfg.Scheduler,
		snapshotJob: cfg.SnapshotJob,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Handlers)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // large simulations can be slow
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
func (s *Server) setupRoutes(h Handlers) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
			r.Post("/jobs/snapshot", s.handleRunSnapshot)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", h.Portfolio.HandleSummary)
			r.Get("/positions/{symbol}", h.Portfolio.HandlePosition)
			r.Get("/snapshots", h.Portfolio.HandleSnapshots)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.HandleList)
			r.Post("/", h.Orders.HandleCreate)
			r.Delete("/{id}", h.Orders.HandleDeactivate)
		})

		r.Route("/instruments", func(r chi.Router) {
			r.Get("/", h.Universe.HandleList)
			r.Post("/", h.Universe.HandleSave)
			r.Get("/{symbol}", h.Universe.HandleGet)
			r.Get("/{symbol}/technicals", h.Universe.HandleTechnicals)
			r.Get("/{symbol}/risk", h.Universe.HandleRisk)
		})

		r.Route("/prices", func(r chi.Router) {
			r.Get("/{symbol}", h.Universe.HandlePriceSeries)
			r.Post("/{symbol}", h.Universe.HandleSavePrices)
		})

		r.Route("/fx", func(r chi.Router) {
			r.Get("/{pair}", h.Currency.HandleGetSeries)
			r.Post("/", h.Currency.HandleSaveRates)
		})

		r.Route("/optimization", func(r chi.Router) {
			r.Post("/optimize", h.Optimization.HandleOptimize)
			r.Post("/frontier", h.Optimization.HandleFrontier)
		})

		r.Route("/simulation", func(r chi.Router) {
			r.Post("/run", h.Simulation.HandleSimulate)
		})

		r.Route("/rebalancing", func(r chi.Router) {
			r.Post("/analyze", h.Rebalancing.HandleAnalyze)
			r.Post("/timing", h.Rebalancing.HandleTiming)
		})

		r.Route("/dividends", func(r chi.Router) {
			r.Get("/", h.Dividends.HandleList)
			r.Post("/", h.Dividends.HandleCreate)
			r.Get("/{symbol}/yield", h.Dividends.HandleYield)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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
