package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subtrackr/backend/internal/models"
)

func TestNewUsesDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Exchange.CacheTTL)
	assert.Equal(t, models.CurrencyUSD, cfg.Exchange.DefaultCurrency)
	assert.Equal(t, 5*time.Second, cfg.Queue.PollInterval)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_MAX_CONNS", "50")
	t.Setenv("EXCHANGE_CACHE_TTL", "30m")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")

	cfg := New()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.Exchange.CacheTTL)
	assert.Equal(t, models.CurrencyEUR, cfg.Exchange.DefaultCurrency)
	assert.Equal(t, 2.5, cfg.Server.RateLimitPerSecond)
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("DATABASE_MAX_CONNS", "lots")
	t.Setenv("EXCHANGE_CACHE_TTL", "soon")

	cfg := New()

	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Exchange.CacheTTL)
}
