package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentable/internal/utils"
)

// Context keys set by the auth middleware.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxUser   = "user"
)

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": msg})
}

// JWTAuth validates a Bearer access token and stores the subject and role
// in the context under "user_id" (uint64) and "role" (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return unauthenticated(c, "missing bearer token")
			}
			id, role, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return unauthenticated(c, "invalid or expired token")
			}
			c.Set(ctxUserID, id)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// OptionalJWTAuth behaves like JWTAuth when a token is present and lets
// anonymous requests through untouched.  A malformed token is still
// rejected so clients notice stale credentials.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	strict := JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := strict(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}
