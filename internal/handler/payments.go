package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/payment"
	"github.com/iliyamo/rentable/internal/service"
)

const maxWebhookBody = 1 << 16

// PaymentHandler opens checkout sessions and receives processor webhooks.
type PaymentHandler struct {
	Payments *service.PaymentService
	Verifier *payment.Verifier
	Log      zerolog.Logger
}

func NewPaymentHandler(p *service.PaymentService, v *payment.Verifier, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: p, Verifier: v, Log: log}
}

type checkoutReq struct {
	RentalID uint64 `json:"rental_id"`
	Origin   string `json:"origin"`
}

type subscriptionReq struct {
	Tier   model.SubscriptionTier `json:"tier"`
	Origin string                 `json:"origin"`
}

// Checkout: POST /v1/payments/checkout
func (h *PaymentHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Payments.CreateRentalCheckout(ctx, actor(c), req.RentalID, origin(c, req.Origin))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Subscribe: POST /v1/payments/subscription
func (h *PaymentHandler) Subscribe(c echo.Context) error {
	var req subscriptionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Payments.CreateSubscriptionCheckout(ctx, actor(c), req.Tier, origin(c, req.Origin))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Webhook: POST /v1/webhooks/stripe.  Only unreadable, unsigned or
// unparsable payloads are rejected; processing errors are logged and
// still acknowledged so the processor does not retry.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_payload", "message": "could not read body"})
	}
	ev, err := h.Verifier.Parse(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		kind := "invalid_payload"
		if errors.Is(err, payment.ErrSignature) {
			kind = "invalid_signature"
		}
		h.Log.Warn().Err(err).Msg("webhook rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": kind, "message": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	outcome, err := h.Payments.HandleEvent(ctx, ev)
	if err != nil {
		meta := ev.Meta()
		h.Log.Error().Err(err).Str("event_id", meta.ID).Str("event_type", meta.Type).Msg("webhook processing failed")
	}
	if outcome == service.OutcomeTest {
		return c.JSON(http.StatusOK, echo.Map{"verified": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
