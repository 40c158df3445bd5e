// Package api provides the HTTP API for AQIMonitor.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aqimonitor/aqimonitor/internal/api/handler"
	"github.com/aqimonitor/aqimonitor/internal/api/middleware"
	"github.com/aqimonitor/aqimonitor/internal/current"
	"github.com/aqimonitor/aqimonitor/internal/history"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	HistoryService *history.Service
	CurrentService *current.Service

	// ReadyCheck reports whether the observation dataset is available.
	// nil means readiness always passes.
	ReadyCheck func() error
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aqimonitor-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadyCheck)
	historyHandler := handler.NewHistoryHandler(cfg.HistoryService)
	currentHandler := handler.NewCurrentHandler(cfg.CurrentService)

	// Rate limits: dataset queries only touch the local flat file, the
	// current endpoint makes an upstream call per request.
	queryRateLimit := middleware.RateLimitByIP(middleware.QueryRateLimit) // 120 req/min
	liveRateLimit := middleware.RateLimitByIP(middleware.LiveRateLimit)  // 20 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Historical dataset queries
		r.Route("/history", func(r chi.Router) {
			r.Use(queryRateLimit)
			r.Get("/point", historyHandler.PointQuery)
			r.Get("/range", historyHandler.RangeQuery)
		})

		// Live observation lookup - proxies the upstream API
		r.With(liveRateLimit).Get("/current", currentHandler.Snapshot)
	})

	return r
}
