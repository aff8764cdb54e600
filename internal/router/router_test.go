package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/config"
	"github.com/iliyamo/rentable/internal/handler"
	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/payment"
	"github.com/iliyamo/rentable/internal/repository/memstore"
	"github.com/iliyamo/rentable/internal/service"
	"github.com/iliyamo/rentable/internal/utils"
)

const secret = "router-secret"

type app struct {
	e     *echo.Echo
	store *memstore.Store
}

func newApp(t *testing.T) app {
	t.Helper()
	log := zerolog.Nop()
	st := memstore.New()

	tokens := service.NewTokenService(st, log)
	catalog := service.NewCatalogService(st, log)
	rentals := service.NewRentalService(st, nil, log)
	barter := service.NewBarterService(st, nil, log)
	reviews := service.NewReviewService(st, log)
	support := service.NewSupportService(st, nil, 0, log)
	profile := service.NewProfileService(st)
	admin := service.NewAdminService(st, log)
	payments := service.NewPaymentService(st, nil, nil, log)
	pricing := service.NewPricingService(nil, time.Second, log)
	auth := service.NewAuthService(st, service.AuthConfig{
		JWTSecret: secret, SessionSecret: "session", AccessTTLMin: 5, RefreshTTLDays: 1,
	}, log)

	e := echo.New()
	Register(e, Handlers{
		Health:    handler.NewHealthHandler(nil),
		Auth:      handler.NewAuthHandler(auth, log),
		Listings:  handler.NewListingHandler(catalog, barter, log),
		Rentals:   handler.NewRentalHandler(rentals, log),
		Community: handler.NewCommunityHandler(reviews, barter, support, log),
		Account:   handler.NewAccountHandler(profile, tokens, log),
		Admin:     handler.NewAdminHandler(admin, tokens, log),
		Payments:  handler.NewPaymentHandler(payments, payment.NewVerifier(""), log),
		AI:        handler.NewAIHandler(pricing, log),
	}, Deps{
		JWTSecret: secret,
		Users:     st.Users(),
		RateLimit: config.RateLimitConfig{Enabled: false},
		Cache:     config.CacheConfig{Enabled: false},
		Log:       log,
	})
	return app{e: e, store: st}
}

func (a app) user(t *testing.T, openID string, role model.Role) (model.User, string) {
	t.Helper()
	u := model.User{
		OpenID: openID, Role: role, SubscriptionTier: model.TierFree,
		SubscriptionStatus: model.SubscriptionNone, AccessibilityMode: model.AccessibilityDefault,
	}
	require.NoError(t, a.store.Users().Create(context.Background(), &u))
	tok, err := utils.NewAccessToken(secret, u.ID, string(role), 5)
	require.NoError(t, err)
	return u, tok.Token
}

func (a app) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListingToRentalFlow(t *testing.T) {
	a := newApp(t)
	_, ownerTok := a.user(t, "owner", model.RoleUser)
	_, renterTok := a.user(t, "renter", model.RoleUser)

	rec := a.do(http.MethodPost, "/v1/listings", ownerTok,
		`{"title":"Cordless drill","category":"tools","price_per_day":"30","location":"Portland"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listingID := decode(t, rec)["id"].(float64)

	rec = a.do(http.MethodGet, "/v1/tokens/balance", ownerTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, service.ListingAwardTokens, decode(t, rec)["balance"])

	rec = a.do(http.MethodGet, "/v1/listings?category=tools", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cordless drill")

	body := `{"listing_id":` + jsonNumber(listingID) + `,"start_date":"2025-03-01","end_date":"2025-03-04"}`
	rec = a.do(http.MethodPost, "/v1/rentals", renterTok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rental := decode(t, rec)
	assert.Equal(t, "pending", rental["status"])

	rec = a.do(http.MethodPost, "/v1/rentals", renterTok, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["error"])

	rec = a.do(http.MethodPost, "/v1/rentals", renterTok,
		`{"listing_id":1,"start_date":"tomorrow","end_date":"2025-03-04"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rentalPath := "/v1/rentals/" + jsonNumber(rental["id"].(float64)) + "/status"
	rec = a.do(http.MethodPatch, rentalPath, renterTok, `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPatch, rentalPath, ownerTok, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["status"])
}

func TestSearchDefaultLimit(t *testing.T) {
	a := newApp(t)
	owner, _ := a.user(t, "bulk", model.RoleUser)
	for i := 0; i < 60; i++ {
		l := model.Listing{
			UserID: owner.ID, Title: "Ladder", Category: "tools", PricePerDay: decimal.NewFromInt(5),
			Location: "Portland", Availability: model.AvailabilityAvailable, Condition: model.ConditionGood,
			CO2SavedPerRental: decimal.Zero,
		}
		require.NoError(t, a.store.Listings().Create(context.Background(), &l))
	}

	count := func(path string) int {
		rec := a.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		return len(decode(t, rec)["listings"].([]any))
	}
	assert.Equal(t, 50, count("/v1/listings"))
	assert.Equal(t, 10, count("/v1/listings?limit=10"))
	assert.Equal(t, 60, count("/v1/listings?limit=500"))
}

func TestProfileRoutes(t *testing.T) {
	a := newApp(t)
	u, tok := a.user(t, "profiled", model.RoleUser)

	rec := a.do(http.MethodGet, "/v1/profile", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "profiled", decode(t, rec)["open_id"])

	rec = a.do(http.MethodPatch, "/v1/profile", tok, `{"display_name":"Pat"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pat", decode(t, rec)["display_name"])

	rec = a.do(http.MethodGet, "/v1/users/"+jsonNumber(float64(u.ID)), "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pat", decode(t, rec)["display_name"])
}

func TestAuthAndRoleErrors(t *testing.T) {
	a := newApp(t)
	_, userTok := a.user(t, "plain", model.RoleUser)

	rec := a.do(http.MethodPost, "/v1/listings", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/v1/admin/stats", userTok, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, adminTok := a.user(t, "boss", model.RoleAdmin)
	rec = a.do(http.MethodGet, "/v1/admin/stats", adminTok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["users"])
}

func TestSpendMapsInsufficientBalance(t *testing.T) {
	a := newApp(t)
	_, tok := a.user(t, "broke", model.RoleUser)

	rec := a.do(http.MethodPost, "/v1/tokens/spend", tok, `{"amount":5,"description":"boost"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "insufficient_balance", decode(t, rec)["error"])

	rec = a.do(http.MethodGet, "/v1/tokens/audit", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["consistent"])
}

func TestWebhookAcknowledgement(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/v1/webhooks/stripe", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/webhooks/stripe", "",
		`{"id":"evt_test_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"verified":true}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/webhooks/stripe", "",
		`{"id":"evt_9","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestPublicSupportTicketAndPricingFallback(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/v1/support/tickets", "",
		`{"name":"Ana","email":"ana@example.com","subject":"Lost drill","message":"My rental never showed up at the meetup."}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "open", decode(t, rec)["status"])

	rec = a.do(http.MethodPost, "/v1/ai/fair-price", "", `{"title":"Kayak"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["estimated"])

	rec = a.do(http.MethodGet, "/v1/ai/weird-pick", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Emotional Support Goat", decode(t, rec)["name"])
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(uint64(f))
	return string(b)
}
