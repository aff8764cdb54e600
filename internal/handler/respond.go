package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/middleware"
	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

const requestTimeout = 5 * time.Second

var statusByKind = map[error]int{
	service.ErrUnauthenticated:     http.StatusUnauthorized,
	service.ErrForbidden:           http.StatusForbidden,
	service.ErrNotFound:            http.StatusNotFound,
	service.ErrInvalidInput:        http.StatusBadRequest,
	service.ErrConflict:            http.StatusConflict,
	service.ErrInsufficientBalance: http.StatusPaymentRequired,
	service.ErrExternalService:     http.StatusBadGateway,
}

// fail writes err as {"error": kind, "message": text}.  Errors outside
// the service taxonomy become a logged 500 with a generic message.
func fail(c echo.Context, log zerolog.Logger, err error) error {
	kind := service.Kind(err)
	if kind == nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout", "message": "request timed out"})
		}
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal error"})
	}
	return c.JSON(statusByKind[kind], echo.Map{"error": kind.Error(), "message": service.Message(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrInvalidInput.Error(), "message": msg})
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest(c, "invalid body")
	}
	return nil
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func actor(c echo.Context) *model.User { return middleware.CurrentUser(c) }

// page reads limit/offset query parameters, clamping limit to [1, 100].
func page(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 20
	}
	return min(limit, 100), max(offset, 0)
}

func queryBool(c echo.Context, name string) *bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

// origin prefers the explicit value and falls back to the request Origin header.
func origin(c echo.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return c.Request().Header.Get(echo.HeaderOrigin)
}
