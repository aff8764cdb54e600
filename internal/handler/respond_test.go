package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/service"
)

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("%w: not yours", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: listing not found", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("%w: busy", service.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: low", service.ErrInsufficientBalance), http.StatusPaymentRequired, "insufficient_balance"},
		{fmt.Errorf("%w: stripe down", service.ErrExternalService), http.StatusBadGateway, "external_service_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, fail(c, zerolog.Nop(), tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), `"error":"`+tc.kind+`"`)
	}
}

func TestFailHidesInternalMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fail(c, zerolog.Nop(), errors.New("dial tcp 10.0.0.3:3306: refused")))
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2025-06-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = parseDate("2025-06-01T10:00:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), d)

	_, ok = parseDate("06/01/2025")
	assert.False(t, ok)
}

func TestPage(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil), httptest.NewRecorder())
	limit, offset := page(c)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	limit, _ = page(c)
	assert.Equal(t, 20, limit)
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

func TestReady(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)
	require.NoError(t, NewHealthHandler(downDB{}).Ready(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
