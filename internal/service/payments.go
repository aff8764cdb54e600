package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/payment"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository"
)

// TestEventPrefix marks processor test events.  They are acknowledged
// but never applied.
const TestEventPrefix = "evt_test_"

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateRentalCheckout(ctx context.Context, in payment.RentalCheckout) (payment.Session, error)
	CreateSubscriptionCheckout(ctx context.Context, in payment.SubscriptionCheckout) (payment.Session, error)
}

// PaymentService creates checkouts and reconciles webhook events with
// rental and user state.
type PaymentService struct {
	store    repository.Store
	checkout CheckoutProvider
	notifier Notifier
	log      zerolog.Logger
}

// NewPaymentService returns a PaymentService.  checkout may be nil when
// payments are not configured.
func NewPaymentService(store repository.Store, checkout CheckoutProvider, notifier Notifier, log zerolog.Logger) *PaymentService {
	return &PaymentService{store: store, checkout: checkout, notifier: notifier, log: log}
}

// Outcome reports what HandleEvent did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeTest      Outcome = "test"
	OutcomeIgnored   Outcome = "ignored"
)

// HandleEvent applies ev exactly once per event id.  The processed-id
// record and every side effect share one transaction, so a replay or a
// concurrent duplicate delivery commits nothing.
func (s *PaymentService) HandleEvent(ctx context.Context, ev payment.Event) (Outcome, error) {
	meta := ev.Meta()
	log := s.log.With().Str("event_id", meta.ID).Str("event_type", meta.Type).Logger()
	if strings.HasPrefix(meta.ID, TestEventPrefix) {
		log.Info().Msg("test event acknowledged")
		return OutcomeTest, nil
	}

	outcome := OutcomeApplied
	var notes []queue.NotificationEvent
	err := s.store.InTx(ctx, func(st repository.Store) error {
		fresh, err := st.WebhookEvents().Record(ctx, meta.ID, meta.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome = OutcomeDuplicate
			return nil
		}
		switch e := ev.(type) {
		case payment.CheckoutCompleted:
			notes, err = s.applyCheckout(ctx, st, log, e)
		case payment.SubscriptionChanged:
			notes, err = s.applySubscription(ctx, st, log, e.UserID, model.SubscriptionUpdate{
				SubscriptionID: &e.SubscriptionID,
				Tier:           e.Tier,
				Status:         subscriptionStatus(e.Active),
			})
		case payment.SubscriptionDeleted:
			notes, err = s.applySubscription(ctx, st, log, e.UserID, model.SubscriptionUpdate{
				Tier:   model.TierFree,
				Status: model.SubscriptionCanceled,
			})
		case payment.ChargeRefunded:
			err = s.applyRefund(ctx, st, log, e)
		default:
			outcome = OutcomeIgnored
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("webhook processing failed")
		return outcome, err
	}
	switch outcome {
	case OutcomeDuplicate:
		log.Info().Msg("duplicate event skipped")
	case OutcomeIgnored:
		log.Info().Msg("unhandled event type")
	default:
		log.Info().Msg("event applied")
	}
	for _, n := range notes {
		notify(s.notifier, s.log, n)
	}
	return outcome, nil
}

func subscriptionStatus(active bool) model.SubscriptionStatus {
	if active {
		return model.SubscriptionActive
	}
	return model.SubscriptionPastDue
}

// applyCheckout confirms the rental and credits the payer.  The two
// effects are independent: a missing rental does not block the credit
// and a missing user does not block the confirmation.
func (s *PaymentService) applyCheckout(ctx context.Context, st repository.Store, log zerolog.Logger,
	e payment.CheckoutCompleted) ([]queue.NotificationEvent, error) {
	var notes []queue.NotificationEvent
	if e.RentalID != nil {
		err := st.Rentals().MarkPaid(ctx, *e.RentalID, e.PaymentIntentID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			log.Warn().Uint64("rental_id", *e.RentalID).Msg("checkout for unknown rental")
		case errors.Is(err, repository.ErrConflict):
			log.Warn().Uint64("rental_id", *e.RentalID).Msg("rental is not awaiting payment")
		case err != nil:
			return nil, err
		default:
			r, err := st.Rentals().GetByID(ctx, *e.RentalID)
			if err != nil {
				return nil, err
			}
			notes = append(notes, queue.NotificationEvent{
				Kind: queue.KindRentalPaid, UserID: r.OwnerID, RelatedID: r.ID,
				Title: "Rental paid", Message: fmt.Sprintf("Rental #%d has been paid and confirmed", r.ID),
			})
		}
	}
	if e.UserID != nil {
		if e.CustomerID != nil {
			if err := st.Users().SetStripeCustomer(ctx, *e.UserID, *e.CustomerID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
		_, err := applyTokens(ctx, st, *e.UserID, PaymentAwardTokens, model.TokenEarn, "Completed a payment", e.RentalID)
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn().Uint64("user_id", *e.UserID).Msg("checkout for unknown user")
		case err != nil:
			return nil, err
		}
	}
	return notes, nil
}

func (s *PaymentService) applySubscription(ctx context.Context, st repository.Store, log zerolog.Logger,
	userID *uint64, upd model.SubscriptionUpdate) ([]queue.NotificationEvent, error) {
	if userID == nil {
		log.Warn().Msg("subscription event without user id")
		return nil, nil
	}
	err := st.Users().SetSubscription(ctx, *userID, upd)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Uint64("user_id", *userID).Msg("subscription event for unknown user")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []queue.NotificationEvent{{
		Kind: queue.KindSubscriptionState, UserID: *userID,
		Title:   "Subscription updated",
		Message: fmt.Sprintf("Your plan is now %s (%s)", upd.Tier, upd.Status),
	}}, nil
}

func (s *PaymentService) applyRefund(ctx context.Context, st repository.Store, log zerolog.Logger, e payment.ChargeRefunded) error {
	if e.PaymentIntentID == "" {
		return nil
	}
	r, err := st.Rentals().GetByPaymentIntent(ctx, e.PaymentIntentID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info().Str("payment_intent", e.PaymentIntentID).Msg("refund for unknown payment intent")
		return nil
	}
	if err != nil {
		return err
	}
	if r.PaymentStatus != model.PaymentPaid {
		return nil
	}
	return st.Rentals().SetPaymentStatus(ctx, r.ID, model.PaymentRefunded)
}

func (s *PaymentService) provider() (CheckoutProvider, error) {
	if s.checkout == nil {
		return nil, fmt.Errorf("%w: payments are not configured", ErrExternalService)
	}
	return s.checkout, nil
}

// Cents converts a dollar amount to whole cents.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateRentalCheckout opens a checkout session for the renter of an
// unpaid rental.
func (s *PaymentService) CreateRentalCheckout(ctx context.Context, actor *model.User, rentalID uint64, origin string) (payment.Session, error) {
	if err := requireUser(actor); err != nil {
		return payment.Session{}, err
	}
	if strings.TrimSpace(origin) == "" {
		return payment.Session{}, invalid("origin is required")
	}
	r, err := s.store.Rentals().GetByID(ctx, rentalID)
	if err != nil {
		return payment.Session{}, fromRepo(err, "rental")
	}
	if r.RenterID != actor.ID {
		return payment.Session{}, forbidden("only the renter may pay for this rental")
	}
	if r.PaymentStatus != model.PaymentPending || r.Status == model.RentalCanceled || r.Status == model.RentalCompleted {
		return payment.Session{}, conflict("rental is not awaiting payment")
	}
	l, err := s.store.Listings().GetByID(ctx, r.ListingID)
	if err != nil {
		return payment.Session{}, fromRepo(err, "listing")
	}
	p, err := s.provider()
	if err != nil {
		return payment.Session{}, err
	}
	in := payment.RentalCheckout{
		RentalID: r.ID, UserID: actor.ID, Title: l.Title, AmountCents: Cents(r.TotalPrice), Origin: origin,
	}
	if actor.Email != nil {
		in.Email = *actor.Email
	}
	sess, err := p.CreateRentalCheckout(ctx, in)
	if err != nil {
		return payment.Session{}, fmt.Errorf("%w: checkout could not be created", ErrExternalService)
	}
	if err := s.store.Rentals().SetCheckoutSession(ctx, r.ID, sess.ID); err != nil {
		return payment.Session{}, fromRepo(err, "rental")
	}
	return sess, nil
}

// CreateSubscriptionCheckout opens a subscription checkout for a paid tier.
func (s *PaymentService) CreateSubscriptionCheckout(ctx context.Context, actor *model.User, tier model.SubscriptionTier, origin string) (payment.Session, error) {
	if err := requireUser(actor); err != nil {
		return payment.Session{}, err
	}
	if _, ok := payment.TierPriceCents[tier]; !ok {
		return payment.Session{}, invalid("tier must be starter, pro or enterprise")
	}
	if strings.TrimSpace(origin) == "" {
		return payment.Session{}, invalid("origin is required")
	}
	p, err := s.provider()
	if err != nil {
		return payment.Session{}, err
	}
	in := payment.SubscriptionCheckout{UserID: actor.ID, Tier: tier, Origin: origin}
	if actor.Email != nil {
		in.Email = *actor.Email
	}
	sess, err := p.CreateSubscriptionCheckout(ctx, in)
	if err != nil {
		return payment.Session{}, fmt.Errorf("%w: checkout could not be created", ErrExternalService)
	}
	return sess, nil
}
