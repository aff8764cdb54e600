package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// RentalHandler serves bookings.
type RentalHandler struct {
	Rentals *service.RentalService
	Log     zerolog.Logger
}

func NewRentalHandler(r *service.RentalService, log zerolog.Logger) *RentalHandler {
	return &RentalHandler{Rentals: r, Log: log}
}

type rentalReq struct {
	ListingID      uint64  `json:"listing_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Notes          *string `json:"notes"`
	MeetupLocation *string `json:"meetup_location"`
}

type statusReq struct {
	Status string `json:"status"`
}

// parseDate accepts a calendar date (UTC midnight) or an RFC 3339 instant.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Create: POST /v1/rentals
func (h *RentalHandler) Create(c echo.Context) error {
	var req rentalReq
	if err := bind(c, &req); err != nil {
		return err
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		return badRequest(c, "start_date must be YYYY-MM-DD or RFC 3339")
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		return badRequest(c, "end_date must be YYYY-MM-DD or RFC 3339")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Rentals.Create(ctx, actor(c), service.RentalInput{
		ListingID:      req.ListingID,
		StartDate:      start,
		EndDate:        end,
		Notes:          req.Notes,
		MeetupLocation: req.MeetupLocation,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Get: GET /v1/rentals/:id
func (h *RentalHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid rental id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Rentals.Get(ctx, actor(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Mine: GET /v1/rentals/mine
func (h *RentalHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Rentals.MyRentals(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rentals": out})
}

// Owned: GET /v1/rentals/owner
func (h *RentalHandler) Owned(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Rentals.OwnerRentals(ctx, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rentals": out})
}

// UpdateStatus: PATCH /v1/rentals/:id/status
func (h *RentalHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid rental id")
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Rentals.UpdateStatus(ctx, actor(c), id, model.RentalStatus(req.Status))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}
