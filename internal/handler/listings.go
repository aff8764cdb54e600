package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// ListingHandler serves the catalog.
type ListingHandler struct {
	Catalog *service.CatalogService
	Barter  *service.BarterService
	Log     zerolog.Logger
}

func NewListingHandler(cat *service.CatalogService, barter *service.BarterService, log zerolog.Logger) *ListingHandler {
	return &ListingHandler{Catalog: cat, Barter: barter, Log: log}
}

type flagReq struct {
	Reason string `json:"reason"`
}

// Search: GET /v1/listings?category=&zip_code=&emergency=&weird=&q=&limit=
// The store applies the search default and ceiling to limit.
func (h *ListingHandler) Search(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	f := model.ListingFilter{
		Category:    c.QueryParam("category"),
		ZipCode:     c.QueryParam("zip_code"),
		IsEmergency: queryBool(c, "emergency"),
		IsWeird:     queryBool(c, "weird"),
		Query:       c.QueryParam("q"),
		Limit:       limit,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Catalog.Search(ctx, f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": out})
}

// Get: GET /v1/listings/:id
func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Reviews: GET /v1/listings/:id/reviews
func (h *ListingHandler) Reviews(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Catalog.Reviews(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": out})
}

// Create: POST /v1/listings
func (h *ListingHandler) Create(c echo.Context) error {
	var in service.ListingInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Catalog.Create(ctx, actor(c), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Mine: GET /v1/me/listings
func (h *ListingHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Catalog.MyListings(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": out})
}

// Update: PATCH /v1/listings/:id
func (h *ListingHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var in service.ListingUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Catalog.Update(ctx, actor(c), id, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Delete: DELETE /v1/listings/:id
func (h *ListingHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.Delete(ctx, actor(c), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Flag: POST /v1/listings/:id/flag
func (h *ListingHandler) Flag(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req flagReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.Flag(ctx, actor(c), id, req.Reason); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Offers: GET /v1/listings/:id/barter-offers
func (h *ListingHandler) Offers(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Barter.ListingOffers(ctx, actor(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": out})
}
