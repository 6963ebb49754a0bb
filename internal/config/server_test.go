package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("RECURRING_CRON", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "")

	cfg := LoadServerConfig()
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "0 6 * * *", cfg.RecurringCronSpec)
	assert.Equal(t, 120, cfg.RateLimitBurst)
}

func TestLoadServerConfigExplicit(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("CORS_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")

	cfg := LoadServerConfig()
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Len(t, cfg.CORSOrigins, 2)
	assert.Equal(t, 50, cfg.RateLimitBurst)
}

func TestLoadServerConfigInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("ENV", "qa")
	cfg := LoadServerConfig()
	assert.Equal(t, EnvDevelopment, cfg.Environment)
}

func TestLoadSMTPConfigDefaults(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_FROM", "")

	cfg := LoadSMTPConfig()
	assert.Empty(t, cfg.Host)
	assert.Equal(t, 587, cfg.Port)
	assert.Equal(t, "invoices@localhost", cfg.From)
}
