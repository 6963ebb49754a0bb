// Package main is the entrypoint for the invoicer server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/api"
	"github.com/craudioviz/invoicer/internal/api/handlers"
	"github.com/craudioviz/invoicer/internal/config"
	"github.com/craudioviz/invoicer/internal/currency"
	"github.com/craudioviz/invoicer/internal/db"
	"github.com/craudioviz/invoicer/internal/metrics"
	"github.com/craudioviz/invoicer/internal/notifications"
	"github.com/craudioviz/invoicer/internal/payments"
	"github.com/craudioviz/invoicer/internal/recurring"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting invoicer server")

	cfg := config.LoadServerConfig()

	if cfg.DatabaseURL == "" {
		logger.Error().Msg("DATABASE_URL environment variable is required")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Redis backs the exchange-rate cache; the currency service degrades
	// to its static table without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, rate caching disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	m, err := metrics.New()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	// Email is optional; invoice sending returns 503 when unconfigured.
	var mailer handlers.InvoiceMailer
	var sender recurring.Sender
	var notifier payments.Notifier
	smtpCfg := config.LoadSMTPConfig()
	if smtpCfg.Host != "" {
		emailService, err := notifications.NewEmailService(notifications.SMTPConfig{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
			From:     smtpCfg.From,
			TLS:      true,
		}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize email service")
			return 1
		}
		emailService.SetMetrics(m)
		mailer = emailService
		invoiceSender := notifications.NewInvoiceSender(emailService, database, logger)
		sender = invoiceSender
		notifier = invoiceSender
	} else {
		logger.Info().Msg("SMTP not configured, invoice email disabled")
	}

	scheduler := recurring.NewScheduler(database, sender, logger)
	scheduler.SetMetrics(m)

	runner := recurring.NewRunner(scheduler, cfg.RecurringCronSpec, logger)
	if err := runner.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start recurring runner")
		return 1
	}
	defer runner.Stop()

	currencyService := currency.NewService(cfg.ExchangeRateAPIKey, redisClient, logger)
	paypal := payments.NewPayPalVerifier(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalWebhookID, cfg.PayPalAPIBase, logger)

	routerCfg := api.Config{
		Environment:         cfg.Environment,
		AllowedOrigins:      cfg.CORSOrigins,
		RateLimitRequests:   int64(cfg.RateLimitBurst),
		RateLimitPeriod:     cfg.RateLimitPeriod,
		CronSecret:          cfg.CronSecret,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		Version:             Version,
	}

	router, err := api.NewRouter(routerCfg, api.Deps{
		DB:        database,
		Scheduler: scheduler,
		Currency:  currencyService,
		PayPal:    paypal,
		Mailer:    mailer,
		Notifier:  notifier,
		Metrics:   m,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for a shutdown signal or a listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("HTTP server error")
		return 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
		return 1
	}

	logger.Info().Msg("Shutdown complete")
	return 0
}
