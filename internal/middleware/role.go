package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentable/internal/model"
)

// RequireRole aborts with 403 unless the caller holds one of roles.  The
// role comes from the loaded user when LoadUser ran, otherwise from the
// token claim.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var role model.Role
			if u := CurrentUser(c); u != nil {
				role = u.Role
			} else if s, ok := c.Get(ctxRole).(string); ok {
				role = model.Role(s)
			}
			if !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "insufficient role"})
			}
			return next(c)
		}
	}
}
