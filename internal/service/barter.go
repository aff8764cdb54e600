package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository"
)

// BarterService manages barter offers.
type BarterService struct {
	store    repository.Store
	notifier Notifier
	log      zerolog.Logger
}

// NewBarterService returns a BarterService.
func NewBarterService(store repository.Store, notifier Notifier, log zerolog.Logger) *BarterService {
	return &BarterService{store: store, notifier: notifier, log: log}
}

// OfferInput is a new barter proposal.
type OfferInput struct {
	ListingID              uint64           `json:"listing_id"`
	OfferedItemDescription string           `json:"offered_item_description"`
	OfferedItemValue       *decimal.Decimal `json:"offered_item_value"`
	Message                *string          `json:"message"`
}

// CreateOffer proposes a trade against a barter-enabled listing.
func (s *BarterService) CreateOffer(ctx context.Context, actor *model.User, in OfferInput) (model.BarterOffer, error) {
	if err := requireUser(actor); err != nil {
		return model.BarterOffer{}, err
	}
	in.OfferedItemDescription = strings.TrimSpace(in.OfferedItemDescription)
	if len(in.OfferedItemDescription) < 3 {
		return model.BarterOffer{}, invalid("offered item description must be at least 3 characters")
	}
	if in.OfferedItemValue != nil && in.OfferedItemValue.IsNegative() {
		return model.BarterOffer{}, invalid("offered item value must not be negative")
	}
	l, err := s.store.Listings().GetByID(ctx, in.ListingID)
	if err != nil {
		return model.BarterOffer{}, fromRepo(err, "listing")
	}
	if !l.IsBarterEnabled {
		return model.BarterOffer{}, conflict("listing does not accept barter offers")
	}
	if l.UserID == actor.ID {
		return model.BarterOffer{}, invalid("you cannot barter for your own listing")
	}
	o := model.BarterOffer{
		ListingID:              l.ID,
		FromUserID:             actor.ID,
		ToUserID:               l.UserID,
		OfferedItemDescription: in.OfferedItemDescription,
		OfferedItemValue:       in.OfferedItemValue,
		Message:                trimmed(in.Message),
		Status:                 model.BarterPending,
	}
	if err := s.store.Barter().Create(ctx, &o); err != nil {
		return model.BarterOffer{}, err
	}
	notify(s.notifier, s.log, queue.NotificationEvent{
		Kind: queue.KindBarterOffer, UserID: l.UserID, RelatedID: o.ID,
		Title: "New barter offer", Message: fmt.Sprintf("Someone offered %q for %q", o.OfferedItemDescription, l.Title),
	})
	return o, nil
}

// UpdateStatus moves an offer.  Only the listing owner may accept or
// reject a pending offer; either party may complete an accepted one.
func (s *BarterService) UpdateStatus(ctx context.Context, actor *model.User, id uint64, to model.BarterStatus) (model.BarterOffer, error) {
	if err := requireUser(actor); err != nil {
		return model.BarterOffer{}, err
	}
	var from model.BarterStatus
	switch to {
	case model.BarterAccepted, model.BarterRejected:
		from = model.BarterPending
	case model.BarterCompleted:
		from = model.BarterAccepted
	default:
		return model.BarterOffer{}, invalid("cannot move an offer to %q", to)
	}
	var out model.BarterOffer
	err := s.store.InTx(ctx, func(st repository.Store) error {
		o, err := st.Barter().GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "barter offer")
		}
		if o.FromUserID != actor.ID && o.ToUserID != actor.ID {
			return forbidden("not a party to this offer")
		}
		if from == model.BarterPending && o.ToUserID != actor.ID {
			return forbidden("only the listing owner may %s an offer", strings.TrimSuffix(string(to), "ed"))
		}
		if o.Status != from {
			return conflict("cannot move a %s offer to %s", o.Status, to)
		}
		if err := st.Barter().TransitionStatus(ctx, id, from, to); err != nil {
			return fromRepo(err, "barter offer")
		}
		out, err = st.Barter().GetByID(ctx, id)
		return fromRepo(err, "barter offer")
	})
	if err != nil {
		return model.BarterOffer{}, err
	}
	other := out.FromUserID
	if actor.ID == out.FromUserID {
		other = out.ToUserID
	}
	notify(s.notifier, s.log, queue.NotificationEvent{
		Kind: queue.KindBarterStatus, UserID: other, RelatedID: id,
		Title: "Barter offer updated", Message: fmt.Sprintf("Offer #%d is now %s", id, to),
	})
	return out, nil
}

// MyOffers lists offers sent or received by the caller.
func (s *BarterService) MyOffers(ctx context.Context, actor *model.User) ([]model.BarterOffer, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.store.Barter().ListByUser(ctx, actor.ID)
}

// ListingOffers lists offers on a listing; only its owner may see them.
func (s *BarterService) ListingOffers(ctx context.Context, actor *model.User, listingID uint64) ([]model.BarterOffer, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	l, err := s.store.Listings().GetByID(ctx, listingID)
	if err != nil {
		return nil, fromRepo(err, "listing")
	}
	if l.UserID != actor.ID && !actor.IsAdmin() {
		return nil, forbidden("only the owner may view offers")
	}
	return s.store.Barter().ListByListing(ctx, listingID)
}
