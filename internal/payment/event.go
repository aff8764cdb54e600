// Package payment wraps the Stripe API: checkout session creation and
// webhook verification.  Webhook payloads are parsed into the typed
// events below before any state is touched.
package payment

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/rentable/internal/model"
)

// Stripe event types handled by reconciliation.
const (
	TypeCheckoutCompleted   = "checkout.session.completed"
	TypeSubscriptionCreated = "customer.subscription.created"
	TypeSubscriptionUpdated = "customer.subscription.updated"
	TypeSubscriptionDeleted = "customer.subscription.deleted"
	TypeChargeRefunded      = "charge.refunded"
)

// Metadata keys written on checkout sessions and subscriptions.
const (
	MetaRentalID = "rental_id"
	MetaUserID   = "user_id"
	MetaTier     = "tier"
)

// Event is one of CheckoutCompleted, SubscriptionChanged,
// SubscriptionDeleted, ChargeRefunded or Unknown.
type Event interface {
	Meta() EventMeta
	isEvent()
}

// EventMeta identifies an event.
type EventMeta struct {
	ID   string
	Type string
}

func (m EventMeta) Meta() EventMeta { return m }
func (EventMeta) isEvent()          {}

// CheckoutCompleted is a finished checkout session.
type CheckoutCompleted struct {
	EventMeta
	SessionID       string
	RentalID        *uint64
	UserID          *uint64
	PaymentIntentID *string
	CustomerID      *string
}

// SubscriptionChanged covers subscription creation and updates.
type SubscriptionChanged struct {
	EventMeta
	SubscriptionID string
	UserID         *uint64
	Tier           model.SubscriptionTier
	Active         bool
}

// SubscriptionDeleted is a cancelled subscription.
type SubscriptionDeleted struct {
	EventMeta
	SubscriptionID string
	UserID         *uint64
}

// ChargeRefunded is a refunded charge.
type ChargeRefunded struct {
	EventMeta
	ChargeID        string
	PaymentIntentID string
}

// Unknown is any event type reconciliation does not act on.
type Unknown struct {
	EventMeta
}

func metaID(md map[string]string, key string) *uint64 {
	v, ok := md[key]
	if !ok || v == "" {
		return nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

// FromStripe converts a Stripe event into a typed Event.  Known types
// whose object fails to decode are reported as errors.
func FromStripe(ev stripe.Event) (Event, error) {
	meta := EventMeta{ID: ev.ID, Type: string(ev.Type)}
	if meta.ID == "" || meta.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", ErrPayload)
	}
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}
	switch meta.Type {
	case TypeCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrPayload, err)
		}
		out := CheckoutCompleted{
			EventMeta: meta,
			SessionID: s.ID,
			RentalID:  metaID(s.Metadata, MetaRentalID),
			UserID:    metaID(s.Metadata, MetaUserID),
		}
		if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
			out.PaymentIntentID = &s.PaymentIntent.ID
		}
		if s.Customer != nil && s.Customer.ID != "" {
			out.CustomerID = &s.Customer.ID
		}
		return out, nil
	case TypeSubscriptionCreated, TypeSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", ErrPayload, err)
		}
		tier := model.SubscriptionTier(sub.Metadata[MetaTier])
		if !tier.Valid() || tier == model.TierFree {
			tier = model.TierStarter
		}
		return SubscriptionChanged{
			EventMeta:      meta,
			SubscriptionID: sub.ID,
			UserID:         metaID(sub.Metadata, MetaUserID),
			Tier:           tier,
			Active:         sub.Status == stripe.SubscriptionStatusActive,
		}, nil
	case TypeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", ErrPayload, err)
		}
		return SubscriptionDeleted{EventMeta: meta, SubscriptionID: sub.ID, UserID: metaID(sub.Metadata, MetaUserID)}, nil
	case TypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: charge: %v", ErrPayload, err)
		}
		out := ChargeRefunded{EventMeta: meta, ChargeID: ch.ID}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		return out, nil
	}
	return Unknown{EventMeta: meta}, nil
}
