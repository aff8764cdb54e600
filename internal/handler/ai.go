package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// AIHandler exposes the advisory pricing helpers.
type AIHandler struct {
	Pricing *service.PricingService
	Log     zerolog.Logger
}

func NewAIHandler(p *service.PricingService, log zerolog.Logger) *AIHandler {
	return &AIHandler{Pricing: p, Log: log}
}

// FairPrice: POST /v1/ai/fair-price.  Oracle failures yield the static
// fallback estimate, never an error.
func (h *AIHandler) FairPrice(c echo.Context) error {
	var item model.ItemDescriptor
	if err := bind(c, &item); err != nil {
		return err
	}
	est, err := h.Pricing.FairPrice(c.Request().Context(), item)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, est)
}

// WeirdPick: GET /v1/ai/weird-pick
func (h *AIHandler) WeirdPick(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Pricing.WeirdPick(c.Request().Context()))
}
