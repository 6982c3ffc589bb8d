// Package api provides the HTTP API for stepfree.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/api/handler"
	"github.com/stepfree/stepfree/internal/api/middleware"
	"github.com/stepfree/stepfree/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Registry tracks upstream provider health for the ops endpoints.
	Registry *resilience.Registry

	// Accessibility provides reconciled snapshots and station alerts.
	Accessibility handler.AccessibilitySource

	// Briefing generates rider-facing station reports.
	Briefing handler.ReportGenerator
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stepfree-api"
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
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	statusHandler := handler.NewStatusHandler(cfg.Accessibility)
	briefingHandler := handler.NewBriefingHandler(cfg.Briefing, cfg.Accessibility)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Accessibility snapshot - standard rate limiting
		r.Route("/accessibility", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/status", statusHandler.GetStatus)
		})

		// Station-scoped endpoints
		r.Route("/stations/{stationID}", func(r chi.Router) {
			r.With(standardRateLimit).Get("/alerts", statusHandler.GetStationAlerts)
			// Briefings hit the generation backend; keep them expensive.
			r.With(expensiveRateLimit).Get("/briefing", briefingHandler.GetBriefing)
		})
	})

	return r
}
