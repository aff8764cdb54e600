package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "app", "DB_HOST": "localhost",
		"DB_PORT": "3306", "DB_NAME": "rentable", "JWT_SECRET": "j", "SESSION_SECRET": "s",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg := Load()
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 30, cfg.RefreshTTLDays)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 10*time.Second, cfg.PricingTimeout)
	assert.False(t, cfg.DBMigrate)
	assert.Zero(t, cfg.SupportNotifyUser)
	require.NoError(t, cfg.Validate())
}

func TestValidateRefusesUnsignedWebhooksInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	cfg := Load()
	assert.ErrorIs(t, cfg.Validate(), ErrUnsignedWebhooks)

	cfg.StripeWebhookSecret = "whsec_x"
	assert.NoError(t, cfg.Validate())

	cfg.Env = "development"
	cfg.StripeWebhookSecret = ""
	assert.NoError(t, cfg.Validate())
}

func TestRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.True(t, cfg.LocalFallback)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}
