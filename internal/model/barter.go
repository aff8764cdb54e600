package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BarterStatus is the state of a barter offer.
type BarterStatus string

const (
	BarterPending   BarterStatus = "pending"
	BarterAccepted  BarterStatus = "accepted"
	BarterRejected  BarterStatus = "rejected"
	BarterCompleted BarterStatus = "completed"
)

// Terminal reports whether no further transition is allowed.
func (s BarterStatus) Terminal() bool {
	return s == BarterRejected || s == BarterCompleted
}

// BarterOffer is a non-monetary trade proposal against a barter-enabled
// listing.  FromUserID proposes, ToUserID (the listing owner) decides.
type BarterOffer struct {
	ID                     uint64           `json:"id"`                           // barter_offers.id
	ListingID              uint64           `json:"listing_id"`                   // barter_offers.listing_id
	FromUserID             uint64           `json:"from_user_id"`                 // barter_offers.from_user_id
	ToUserID               uint64           `json:"to_user_id"`                   // barter_offers.to_user_id
	OfferedItemDescription string           `json:"offered_item_description"`     // barter_offers.offered_item_description
	OfferedItemValue       *decimal.Decimal `json:"offered_item_value,omitempty"` // barter_offers.offered_item_value
	Message                *string          `json:"message,omitempty"`            // barter_offers.message
	Status                 BarterStatus     `json:"status"`                       // barter_offers.status
	CreatedAt              time.Time        `json:"created_at"`                   // barter_offers.created_at
	UpdatedAt              time.Time        `json:"updated_at"`                   // barter_offers.updated_at
}
