package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// UserLoader is the part of the user repository LoadUser needs.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoadUser resolves the authenticated subject to its current user row.
// Role and ban state are read fresh on every request, so a demotion or
// ban takes effect before the access token expires.  Requests without a
// subject pass through.
func LoadUser(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get(ctxUserID).(uint64)
			if !ok {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return unauthenticated(c, "account no longer exists")
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "could not load account"})
			}
			if u.IsBanned {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "account is banned"})
			}
			c.Set(ctxUser, &u)
			c.Set(ctxRole, string(u.Role))
			return next(c)
		}
	}
}

// CurrentUser returns the user loaded by LoadUser, or nil for anonymous
// requests.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// currentUserID renders the subject for rate-limit keys.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
