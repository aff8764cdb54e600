// Package config loads application configuration from environment
// variables.  A .env file, when present, is loaded by main before Load.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (development, test, production)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS (optional)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	DBMigrate      bool   // DB_MIGRATE applies the embedded schema on start
	JWTSecret      string // JWT_SECRET signs access tokens
	SessionSecret  string // SESSION_SECRET verifies provider session tokens
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	AdminOpenID    string // ADMIN_OPEN_ID is promoted to admin on first login

	StripeSecretKey     string // STRIPE_SECRET_KEY; empty disables checkout
	StripeWebhookSecret string // STRIPE_WEBHOOK_SECRET; empty accepts unsigned events outside production

	OpenAIAPIKey   string        // OPENAI_API_KEY; empty always serves fallback prices
	OpenAIModel    string        // OPENAI_MODEL
	OpenAIBaseURL  string        // OPENAI_BASE_URL
	PricingTimeout time.Duration // PRICING_TIMEOUT

	RabbitMQURL       string // RABBITMQ_URL; empty disables notifications
	SupportNotifyUser uint64 // SUPPORT_NOTIFY_USER_ID receives new-ticket notifications
}

// ErrUnsignedWebhooks is returned by Validate when production would
// accept unsigned payment webhooks.
var ErrUnsignedWebhooks = errors.New("STRIPE_WEBHOOK_SECRET is required in production when STRIPE_SECRET_KEY is set")

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and missing values stop the process.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", false),
		JWTSecret:      must("JWT_SECRET"),
		SessionSecret:  must("SESSION_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		AdminOpenID:    os.Getenv("ADMIN_OPEN_ID"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		PricingTimeout: envDur("PRICING_TIMEOUT", 10*time.Second),

		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		SupportNotifyUser: uint64(max(envInt("SUPPORT_NOTIFY_USER_ID", 0), 0)),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool { return c.Env == "production" }

// Validate rejects combinations that are unsafe to run with.
func (c Config) Validate() error {
	if c.IsProduction() && c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return ErrUnsignedWebhooks
	}
	if c.AccessTTLMin < 1 || c.RefreshTTLDays < 1 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("var", key).Msg("missing required env var")
	}
	return v
}
