package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rentable/internal/config"
	"github.com/iliyamo/rentable/internal/database"
	"github.com/iliyamo/rentable/internal/handler"
	"github.com/iliyamo/rentable/internal/middleware"
	"github.com/iliyamo/rentable/internal/payment"
	"github.com/iliyamo/rentable/internal/pricing"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository"
	"github.com/iliyamo/rentable/internal/router"
	"github.com/iliyamo/rentable/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := config.NewLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
		log.Info().Msg("schema applied")
	}
	store := repository.NewMySQLStore(db)

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	var notifier service.Notifier
	if cfg.RabbitMQURL != "" {
		notifier = queue.NewPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("notification consumer stopped")
			}
		}()
	} else {
		log.Info().Msg("RABBITMQ_URL not set, notifications disabled")
	}

	var checkout service.CheckoutProvider
	if cfg.StripeSecretKey != "" {
		checkout = payment.NewClient(cfg.StripeSecretKey, log)
	} else {
		log.Info().Msg("STRIPE_SECRET_KEY not set, checkout disabled")
	}
	verifier := payment.NewVerifier(cfg.StripeWebhookSecret)
	if verifier.Insecure() {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, accepting unsigned webhook events")
	}

	var oracle service.PriceOracle
	if cfg.OpenAIAPIKey != "" {
		o, err := pricing.NewOpenAIOracle(pricing.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("pricing oracle")
		}
		oracle = o
	}

	tokens := service.NewTokenService(store, log)
	catalog := service.NewCatalogService(store, log)
	rentals := service.NewRentalService(store, notifier, log)
	barter := service.NewBarterService(store, notifier, log)
	reviews := service.NewReviewService(store, log)
	support := service.NewSupportService(store, notifier, cfg.SupportNotifyUser, log)
	profile := service.NewProfileService(store)
	admin := service.NewAdminService(store, log)
	payments := service.NewPaymentService(store, checkout, notifier, log)
	prices := service.NewPricingService(oracle, cfg.PricingTimeout, log)
	auth := service.NewAuthService(store, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		SessionSecret:  cfg.SessionSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		AdminOpenID:    cfg.AdminOpenID,
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("1M"))

	router.Register(e, router.Handlers{
		Health:    handler.NewHealthHandler(db),
		Auth:      handler.NewAuthHandler(auth, log),
		Listings:  handler.NewListingHandler(catalog, barter, log),
		Rentals:   handler.NewRentalHandler(rentals, log),
		Community: handler.NewCommunityHandler(reviews, barter, support, log),
		Account:   handler.NewAccountHandler(profile, tokens, log),
		Admin:     handler.NewAdminHandler(admin, tokens, log),
		Payments:  handler.NewPaymentHandler(payments, verifier, log),
		AI:        handler.NewAIHandler(prices, log),
	}, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Users:     store.Users(),
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
