package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/config"
	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
	"github.com/iliyamo/rentable/internal/utils"
)

const secret = "test-secret"

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func accessToken(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get("user_id"), "role": c.Get("role")})
	}, JWTAuth(secret))

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)

	rec = serve(e, http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", accessToken(t, 7, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"admin"}`, rec.Body.String())
}

func TestOptionalJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		return c.String(http.StatusOK, currentUserID(c))
	}, OptionalJWTAuth(secret))

	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, "anon", rec.Body.String())

	rec = serve(e, http.MethodGet, "/x", accessToken(t, 3, "user"))
	assert.Equal(t, "3", rec.Body.String())

	rec = serve(e, http.MethodGet, "/x", "stale")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoadUserAndRequireRole(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, Role: model.RoleAdmin},
		2: {ID: 2, Role: model.RoleUser},
		3: {ID: 3, Role: model.RoleAdmin, IsBanned: true},
	}
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, string(CurrentUser(c).Role))
	}, JWTAuth(secret), LoadUser(users), RequireRole(model.RoleAdmin))

	// token still claims admin but the row says user
	rec := serve(e, http.MethodGet, "/admin", accessToken(t, 2, "admin"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(e, http.MethodGet, "/admin", accessToken(t, 3, "admin"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "banned")

	rec = serve(e, http.MethodGet, "/admin", accessToken(t, 99, "admin"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/admin", accessToken(t, 1, "user"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestTokenBucketLocalFallback(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test",
		LocalFallback:  true,
	}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, zerolog.Nop()))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/", "").Code)
	rec := serve(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketDisabledWithoutBackends(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, zerolog.Nop()))
	for range 3 {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/listings", nil), httptest.NewRecorder())
	c.SetPath("/v1/listings")
	c.Set("user_id", uint64(12))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	assert.Equal(t, "rl:user:12:route:GET /v1/listings", buildRateKey(cfg, c))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "route_query"}
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/listings?q=a", nil), httptest.NewRecorder())
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/listings?q=b", nil), httptest.NewRecorder())
	assert.NotEqual(t, cacheKeyFrom(cfg, a), cacheKeyFrom(cfg, b))
	assert.Contains(t, cacheKeyFrom(cfg, a), "c:")
}
