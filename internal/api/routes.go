// Package api provides the HTTP API for the invoicer server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api/handlers"
	"github.com/craudioviz/invoicer/internal/api/middleware"
	"github.com/craudioviz/invoicer/internal/config"
	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/metrics"
	"github.com/craudioviz/invoicer/internal/payments"
	"github.com/craudioviz/invoicer/internal/recurring"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment gates CORS strictness and gin mode.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// CronSecret guards the recurring-run trigger endpoint.
	CronSecret string
	// StripeWebhookSecret verifies Stripe deliveries.
	StripeWebhookSecret string
	// Version information for the health endpoint.
	Version string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 120,
		RateLimitPeriod:   "1m",
		Version:           "dev",
	}
}

// Deps bundles the services the router wires into handlers. Mailer, Notifier
// and Metrics may be nil; PayPal may be unconfigured.
type Deps struct {
	DB        *db.DB
	Scheduler *recurring.Scheduler
	Currency  *currency.Service
	PayPal    *payments.PayPalVerifier
	Mailer    handlers.InvoiceMailer
	Notifier  payments.Notifier
	Metrics   *metrics.Metrics
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Deps, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	if deps.Metrics != nil {
		r.Engine.Use(middleware.Instrument(deps.Metrics))
	}

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	reconciler := payments.NewReconciler(deps.DB, logger)
	if deps.Notifier != nil {
		reconciler.SetNotifier(deps.Notifier)
	}

	// Public routes: health, metrics, processor webhooks, the cron-guarded
	// run trigger and the token-keyed portal.
	public := r.Engine.Group("")

	healthHandler := handlers.NewHealthHandler(deps.DB, cfg.Version)
	healthHandler.RegisterRoutes(public)

	if deps.Metrics != nil {
		r.Engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	webhooksHandler := handlers.NewWebhooksHandler(reconciler, cfg.StripeWebhookSecret, deps.PayPal, deps.Metrics, logger)
	webhooksHandler.RegisterRoutes(public)

	portalHandler := handlers.NewPortalHandler(deps.DB, logger)
	portalHandler.RegisterRoutes(public)

	recurringHandler := handlers.NewRecurringHandler(deps.DB, deps.Scheduler, logger)
	recurringHandler.RegisterRunRoute(r.Engine.Group("/api/v1"), middleware.CronSecret(cfg.CronSecret))

	// API v1 routes (auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.Auth(deps.DB, logger))

	handlers.NewClientsHandler(deps.DB, logger).RegisterRoutes(apiV1)
	handlers.NewInvoicesHandler(deps.DB, deps.Mailer, logger).RegisterRoutes(apiV1)
	recurringHandler.RegisterRoutes(apiV1)
	handlers.NewExpensesHandler(deps.DB, logger).RegisterRoutes(apiV1)
	handlers.NewCurrenciesHandler(deps.Currency, logger).RegisterRoutes(apiV1)
	handlers.NewSettingsHandler(deps.DB, logger).RegisterRoutes(apiV1)
	handlers.NewActivityHandler(deps.DB, logger).RegisterRoutes(apiV1)

	return r, nil
}
