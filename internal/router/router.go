// Package router maps the HTTP surface onto the handlers.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/config"
	"github.com/iliyamo/rentable/internal/handler"
	"github.com/iliyamo/rentable/internal/middleware"
	"github.com/iliyamo/rentable/internal/model"
)

// Handlers bundles every resource handler.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Listings  *handler.ListingHandler
	Rentals   *handler.RentalHandler
	Community *handler.CommunityHandler
	Account   *handler.AccountHandler
	Admin     *handler.AdminHandler
	Payments  *handler.PaymentHandler
	AI        *handler.AIHandler
}

// Deps carries what the route middleware needs.
type Deps struct {
	JWTSecret string
	Users     middleware.UserLoader
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       zerolog.Logger
}

// Register installs global middleware and every route.
func Register(e *echo.Echo, h Handlers, d Deps) {
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))

	e.GET("/healthz", h.Health.Live)
	e.GET("/readyz", h.Health.Ready)

	// Raw body, no auth: the signature is the credential.
	e.POST("/v1/webhooks/stripe", h.Payments.Webhook)

	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	loadUser := middleware.LoadUser(d.Users)

	a := e.Group("/v1/auth")
	a.POST("/session", h.Auth.Session)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/logout", h.Auth.Logout, middleware.OptionalJWTAuth(d.JWTSecret), loadUser)
	a.GET("/me", h.Auth.Me, middleware.JWTAuth(d.JWTSecret), loadUser)

	pub := e.Group("/v1", middleware.OptionalJWTAuth(d.JWTSecret), loadUser)
	pub.GET("/listings", h.Listings.Search, cache)
	pub.GET("/listings/:id", h.Listings.Get)
	pub.GET("/listings/:id/reviews", h.Listings.Reviews, cache)
	pub.GET("/users/:id", h.Account.PublicProfile)
	pub.GET("/users/:id/reviews", h.Community.UserReviews)
	pub.POST("/support/tickets", h.Community.CreateTicket)
	pub.POST("/ai/fair-price", h.AI.FairPrice)
	pub.GET("/ai/weird-pick", h.AI.WeirdPick)

	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), loadUser)

	g.POST("/listings", h.Listings.Create)
	g.GET("/me/listings", h.Listings.Mine)
	g.PATCH("/listings/:id", h.Listings.Update)
	g.DELETE("/listings/:id", h.Listings.Delete)
	g.POST("/listings/:id/flag", h.Listings.Flag)
	g.GET("/listings/:id/barter-offers", h.Listings.Offers)

	g.POST("/rentals", h.Rentals.Create)
	g.GET("/rentals/mine", h.Rentals.Mine)
	g.GET("/rentals/owner", h.Rentals.Owned)
	g.GET("/rentals/:id", h.Rentals.Get)
	g.PATCH("/rentals/:id/status", h.Rentals.UpdateStatus)

	g.POST("/reviews", h.Community.CreateReview)

	g.POST("/barter", h.Community.CreateOffer)
	g.GET("/barter/mine", h.Community.MyOffers)
	g.PATCH("/barter/:id/status", h.Community.UpdateOffer)

	g.GET("/support/tickets/mine", h.Community.MyTickets)

	g.GET("/profile", h.Account.Profile)
	g.PATCH("/profile", h.Account.UpdateProfile)

	g.GET("/tokens/balance", h.Account.Balance)
	g.GET("/tokens/history", h.Account.History)
	g.POST("/tokens/spend", h.Account.Spend)
	g.GET("/tokens/audit", h.Account.Audit)

	g.POST("/payments/checkout", h.Payments.Checkout)
	g.POST("/payments/subscription", h.Payments.Subscribe)

	adm := e.Group("/v1/admin", middleware.JWTAuth(d.JWTSecret), loadUser, middleware.RequireRole(model.RoleAdmin))
	adm.GET("/stats", h.Admin.Stats)
	adm.GET("/users", h.Admin.Users)
	adm.PATCH("/users/:id/role", h.Admin.SetRole)
	adm.POST("/users/:id/ban", h.Admin.Ban)
	adm.POST("/users/:id/unban", h.Admin.Unban)
	adm.POST("/users/:id/tokens", h.Admin.Credit)
	adm.GET("/users/:id/tokens/audit", h.Admin.Audit)
	adm.GET("/listings", h.Admin.Listings)
	adm.GET("/listings/flagged", h.Admin.Flagged)
	adm.POST("/listings/:id/approve", h.Admin.Approve)
	adm.POST("/listings/:id/remove", h.Admin.Remove)
	adm.GET("/rentals", h.Admin.Rentals)
	adm.GET("/tickets", h.Admin.Tickets)
	adm.PATCH("/tickets/:id", h.Admin.UpdateTicket)
	adm.GET("/settings", h.Admin.Settings)
	adm.GET("/settings/:key", h.Admin.Setting)
	adm.PUT("/settings/:key", h.Admin.PutSetting)
}
