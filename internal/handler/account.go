package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// AccountHandler serves the caller's profile and token wallet.
type AccountHandler struct {
	Profiles *service.ProfileService
	Tokens   *service.TokenService
	Log      zerolog.Logger
}

func NewAccountHandler(p *service.ProfileService, t *service.TokenService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{Profiles: p, Tokens: t, Log: log}
}

type profileReq struct {
	DisplayName       *string                  `json:"display_name"`
	Bio               *string                  `json:"bio"`
	Location          *string                  `json:"location"`
	ZipCode           *string                  `json:"zip_code"`
	Phone             *string                  `json:"phone"`
	AccessibilityMode *model.AccessibilityMode `json:"accessibility_mode"`
}

type spendReq struct {
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	RelatedID   *uint64 `json:"related_id"`
}

// Profile: GET /v1/profile
func (h *AccountHandler) Profile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Profiles.Me(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile: PATCH /v1/profile
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Profiles.Update(ctx, actor(c), model.ProfileUpdate(req))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// PublicProfile: GET /v1/users/:id
func (h *AccountHandler) PublicProfile(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.Public(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Balance: GET /v1/tokens/balance
func (h *AccountHandler) Balance(c echo.Context) error {
	u := actor(c)
	if u == nil {
		return fail(c, h.Log, service.ErrUnauthenticated)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Tokens.Balance(ctx, u.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": b})
}

// History: GET /v1/tokens/history?limit=
func (h *AccountHandler) History(c echo.Context) error {
	u := actor(c)
	if u == nil {
		return fail(c, h.Log, service.ErrUnauthenticated)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Tokens.History(ctx, u.ID, limit)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": out})
}

// Spend: POST /v1/tokens/spend
func (h *AccountHandler) Spend(c echo.Context) error {
	u := actor(c)
	if u == nil {
		return fail(c, h.Log, service.ErrUnauthenticated)
	}
	var req spendReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Tokens.Debit(ctx, u.ID, req.Amount, req.Description, req.RelatedID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

// Audit: GET /v1/tokens/audit
func (h *AccountHandler) Audit(c echo.Context) error {
	u := actor(c)
	if u == nil {
		return fail(c, h.Log, service.ErrUnauthenticated)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Tokens.Audit(ctx, u.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}
