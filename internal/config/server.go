// Package config provides configuration management for the invoicer server.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string
	DatabaseURL string
	RedisURL    string

	// CronSecret gates the public recurring-run trigger endpoint.
	CronSecret string
	// RecurringCronSpec is when the in-process runner fires, cron syntax.
	RecurringCronSpec string

	CORSOrigins      []string
	RateLimitPeriod  string
	RateLimitBurst   int

	StripeWebhookSecret string
	PayPalClientID      string
	PayPalClientSecret  string
	PayPalWebhookID     string
	PayPalAPIBase       string
	ExchangeRateAPIKey  string
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		listenAddr = ":" + port
	}

	origins := strings.Split(os.Getenv("CORS_ORIGINS"), ",")
	if os.Getenv("CORS_ORIGINS") == "" {
		origins = []string{"*"}
	}

	cronSpec := os.Getenv("RECURRING_CRON")
	if cronSpec == "" {
		cronSpec = "0 6 * * *"
	}

	return ServerConfig{
		Environment:       env,
		ListenAddr:        listenAddr,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		CronSecret:        os.Getenv("CRON_SECRET"),
		RecurringCronSpec: cronSpec,

		CORSOrigins:     origins,
		RateLimitPeriod: getEnvDefault("RATE_LIMIT_PERIOD", "1m"),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_REQUESTS", 120),

		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PayPalClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:  os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalWebhookID:     os.Getenv("PAYPAL_WEBHOOK_ID"),
		PayPalAPIBase:       os.Getenv("PAYPAL_API_BASE"),
		ExchangeRateAPIKey:  os.Getenv("EXCHANGE_RATE_API_KEY"),
	}
}

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadSMTPConfig reads SMTP settings from environment variables. An empty
// host disables email delivery.
func LoadSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnvDefault("SMTP_FROM", "invoices@localhost"),
	}
}

// getEnvDefault reads a string from an environment variable, returning the default if unset.
func getEnvDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
