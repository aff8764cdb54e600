package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// CommunityHandler serves reviews, barter offers and support tickets.
type CommunityHandler struct {
	Reviews *service.ReviewService
	Barter  *service.BarterService
	Support *service.SupportService
	Log     zerolog.Logger
}

func NewCommunityHandler(r *service.ReviewService, b *service.BarterService, s *service.SupportService, log zerolog.Logger) *CommunityHandler {
	return &CommunityHandler{Reviews: r, Barter: b, Support: s, Log: log}
}

// CreateReview: POST /v1/reviews
func (h *CommunityHandler) CreateReview(c echo.Context) error {
	var in service.ReviewInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reviews.Create(ctx, actor(c), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// UserReviews: GET /v1/users/:id/reviews
func (h *CommunityHandler) UserReviews(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Reviews.ForUser(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": out})
}

// CreateOffer: POST /v1/barter
func (h *CommunityHandler) CreateOffer(c echo.Context) error {
	var in service.OfferInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Barter.CreateOffer(ctx, actor(c), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// MyOffers: GET /v1/barter/mine
func (h *CommunityHandler) MyOffers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Barter.MyOffers(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": out})
}

// UpdateOffer: PATCH /v1/barter/:id/status
func (h *CommunityHandler) UpdateOffer(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Barter.UpdateStatus(ctx, actor(c), id, model.BarterStatus(req.Status))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CreateTicket: POST /v1/support/tickets.  Authentication is optional.
func (h *CommunityHandler) CreateTicket(c echo.Context) error {
	var in service.TicketInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Support.Create(ctx, actor(c), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": t.ID, "status": t.Status})
}

// MyTickets: GET /v1/support/tickets/mine
func (h *CommunityHandler) MyTickets(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Support.MyTickets(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}
