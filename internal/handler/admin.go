package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// AdminHandler serves moderation endpoints.  Every route sits behind
// RequireRole(admin); the services check again.
type AdminHandler struct {
	Admin  *service.AdminService
	Tokens *service.TokenService
	Log    zerolog.Logger
}

func NewAdminHandler(a *service.AdminService, t *service.TokenService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{Admin: a, Tokens: t, Log: log}
}

type roleReq struct {
	Role model.Role `json:"role"`
}

type reasonReq struct {
	Reason string `json:"reason"`
}

type creditReq struct {
	Amount      int64             `json:"amount"`
	Type        model.TokenTxType `json:"type"`
	Description string            `json:"description"`
}

type ticketReq struct {
	Status     *model.TicketStatus   `json:"status"`
	Priority   *model.TicketPriority `json:"priority"`
	AdminNotes *string               `json:"admin_notes"`
}

type settingReq struct {
	Value *string `json:"value"`
}

// Stats: GET /v1/admin/stats
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Admin.Stats(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Users: GET /v1/admin/users?limit=&offset=
func (h *AdminHandler) Users(c echo.Context) error {
	limit, offset := page(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.Users(ctx, actor(c), limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// SetRole: PATCH /v1/admin/users/:id/role
func (h *AdminHandler) SetRole(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.SetRole(ctx, actor(c), id, req.Role); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Ban: POST /v1/admin/users/:id/ban
func (h *AdminHandler) Ban(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req reasonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.Ban(ctx, actor(c), id, req.Reason); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unban: POST /v1/admin/users/:id/unban
func (h *AdminHandler) Unban(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.Unban(ctx, actor(c), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Credit: POST /v1/admin/users/:id/tokens grants tokens of a credit type.
func (h *AdminHandler) Credit(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req creditReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Tokens.Credit(ctx, id, req.Amount, req.Type, req.Description, nil)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info().Uint64("admin_id", actor(c).ID).Uint64("user_id", id).Int64("amount", req.Amount).Msg("admin token grant")
	return c.JSON(http.StatusCreated, tx)
}

// Audit: GET /v1/admin/users/:id/tokens/audit
func (h *AdminHandler) Audit(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Tokens.Audit(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Listings: GET /v1/admin/listings?limit=&offset=
func (h *AdminHandler) Listings(c echo.Context) error {
	limit, offset := page(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.Listings(ctx, actor(c), limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": out})
}

// Flagged: GET /v1/admin/listings/flagged
func (h *AdminHandler) Flagged(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.FlaggedListings(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": out})
}

// Approve: POST /v1/admin/listings/:id/approve
func (h *AdminHandler) Approve(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Admin.ApproveListing(ctx, actor(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Remove: POST /v1/admin/listings/:id/remove
func (h *AdminHandler) Remove(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req reasonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Admin.RemoveListing(ctx, actor(c), id, req.Reason)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Rentals: GET /v1/admin/rentals?limit=&offset=
func (h *AdminHandler) Rentals(c echo.Context) error {
	limit, offset := page(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.Rentals(ctx, actor(c), limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rentals": out})
}

// Tickets: GET /v1/admin/tickets?status=
func (h *AdminHandler) Tickets(c echo.Context) error {
	var status *model.TicketStatus
	if s := c.QueryParam("status"); s != "" {
		st := model.TicketStatus(s)
		status = &st
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.Tickets(ctx, actor(c), status)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}

// UpdateTicket: PATCH /v1/admin/tickets/:id
func (h *AdminHandler) UpdateTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var req ticketReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Admin.UpdateTicket(ctx, actor(c), id, model.TicketPatch{
		Status:     req.Status,
		Priority:   req.Priority,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Settings: GET /v1/admin/settings
func (h *AdminHandler) Settings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Admin.Settings(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": out})
}

// Setting: GET /v1/admin/settings/:key
func (h *AdminHandler) Setting(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Admin.Setting(ctx, actor(c), c.Param("key"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// PutSetting: PUT /v1/admin/settings/:key
func (h *AdminHandler) PutSetting(c echo.Context) error {
	var req settingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Admin.SetSetting(ctx, actor(c), c.Param("key"), req.Value)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}
