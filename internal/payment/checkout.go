package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/iliyamo/rentable/internal/model"
)

// TierPriceCents is the monthly USD price of each paid tier.
var TierPriceCents = map[model.SubscriptionTier]int64{
	model.TierStarter:    999,
	model.TierPro:        2999,
	model.TierEnterprise: 9999,
}

// Session is the part of a checkout session handed back to clients.
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// RentalCheckout describes a one-off rental payment.
type RentalCheckout struct {
	RentalID    uint64
	UserID      uint64
	Email       string
	Title       string
	AmountCents int64
	Origin      string
}

// SubscriptionCheckout describes a monthly subscription purchase.
type SubscriptionCheckout struct {
	UserID uint64
	Email  string
	Tier   model.SubscriptionTier
	Origin string
}

// Client creates Stripe checkout sessions.
type Client struct {
	log zerolog.Logger
}

// NewClient sets the Stripe API key and returns a Client.
func NewClient(secretKey string, log zerolog.Logger) *Client {
	stripe.Key = secretKey
	return &Client{log: log.With().Str("component", "stripe").Logger()}
}

func successURL(origin, path string) string {
	return strings.TrimRight(origin, "/") + path
}

// CreateRentalCheckout opens a payment-mode session for a rental.
func (c *Client) CreateRentalCheckout(ctx context.Context, in RentalCheckout) (Session, error) {
	rentalID := strconv.FormatUint(in.RentalID, 10)
	userID := strconv.FormatUint(in.UserID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL(in.Origin, "/rentals/"+rentalID+"?payment=success&session_id={CHECKOUT_SESSION_ID}")),
		CancelURL:         stripe.String(successURL(in.Origin, "/rentals/"+rentalID+"?payment=canceled")),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(in.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String("Rental: " + in.Title)},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetaRentalID: rentalID, MetaUserID: userID},
		},
	}
	if in.Email != "" {
		params.CustomerEmail = stripe.String(in.Email)
	}
	params.AddMetadata(MetaRentalID, rentalID)
	params.AddMetadata(MetaUserID, userID)
	return c.create(ctx, params)
}

// CreateSubscriptionCheckout opens a subscription-mode session.
func (c *Client) CreateSubscriptionCheckout(ctx context.Context, in SubscriptionCheckout) (Session, error) {
	cents, ok := TierPriceCents[in.Tier]
	if !ok {
		return Session{}, fmt.Errorf("no price for tier %q", in.Tier)
	}
	userID := strconv.FormatUint(in.UserID, 10)
	md := map[string]string{MetaUserID: userID, MetaTier: string(in.Tier)}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(successURL(in.Origin, "/subscription?status=success&session_id={CHECKOUT_SESSION_ID}")),
		CancelURL:         stripe.String(successURL(in.Origin, "/subscription?status=canceled")),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(cents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String("Rentable " + string(in.Tier))},
				Recurring:   &stripe.CheckoutSessionLineItemPriceDataRecurringParams{Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth))},
			},
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: md},
	}
	if in.Email != "" {
		params.CustomerEmail = stripe.String(in.Email)
	}
	for k, v := range md {
		params.AddMetadata(k, v)
	}
	return c.create(ctx, params)
}

func (c *Client) create(ctx context.Context, params *stripe.CheckoutSessionParams) (Session, error) {
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	s, err := session.New(params)
	if err != nil {
		c.log.Error().Err(err).Msg("checkout session create failed")
		return Session{}, err
	}
	c.log.Info().Str("session_id", s.ID).Str("mode", string(s.Mode)).Msg("checkout session created")
	return Session{ID: s.ID, URL: s.URL}, nil
}
