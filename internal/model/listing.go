package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability mirrors listings.availability.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityRented      Availability = "rented"
	AvailabilityUnavailable Availability = "unavailable"
)

// Valid reports whether a is a known availability value.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityRented, AvailabilityUnavailable:
		return true
	}
	return false
}

// Condition is the owner's description of the item's wear.
type Condition string

const (
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Listing represents an item posted for rent.  A listing belongs to one
// owner (UserID).  Availability is moved by the rental lifecycle and by
// admin moderation; owners may only toggle it between available and
// unavailable while no rental holds it.
type Listing struct {
	ID                  uint64            `json:"id"`                          // listings.id
	UserID              uint64            `json:"user_id"`                     // listings.user_id (owner)
	Title               string            `json:"title"`                       // listings.title
	Description         *string           `json:"description,omitempty"`       // listings.description
	Category            string            `json:"category"`                    // listings.category
	PricePerDay         decimal.Decimal   `json:"price_per_day"`               // listings.price_per_day
	FairValuePrice      *decimal.Decimal  `json:"fair_value_price,omitempty"` // listings.fair_value_price
	Location            string            `json:"location"`                    // listings.location
	ZipCode             *string           `json:"zip_code,omitempty"`          // listings.zip_code
	Availability        Availability      `json:"availability"`                // listings.availability
	Condition           Condition         `json:"condition"`                   // listings.condition
	IsVerified          bool              `json:"is_verified"`                 // listings.is_verified
	IsEmergency         bool              `json:"is_emergency"`                // listings.is_emergency
	IsWeird             bool              `json:"is_weird"`                    // listings.is_weird
	IsBarterEnabled     bool              `json:"is_barter_enabled"`           // listings.is_barter_enabled
	IsDeliveryAvailable bool              `json:"is_delivery_available"`       // listings.is_delivery_available
	Images              []string          `json:"images"`                      // listings.images (JSON)
	Specs               map[string]string `json:"specs"`                       // listings.specs (JSON)
	CO2SavedPerRental   decimal.Decimal   `json:"co2_saved_per_rental"`        // listings.co2_saved_per_rental
	ViewCount           uint64            `json:"view_count"`                  // listings.view_count
	IsFlagged           bool              `json:"is_flagged"`                  // listings.is_flagged
	FlagReason          *string           `json:"flag_reason,omitempty"`       // listings.flag_reason
	CreatedAt           time.Time         `json:"created_at"`                  // listings.created_at
	UpdatedAt           time.Time         `json:"updated_at"`                  // listings.updated_at
}

// ListingPatch is a partial update.  Nil fields are left unchanged.
// ClearFlagReason sets flag_reason to NULL and wins over FlagReason.
type ListingPatch struct {
	Title               *string
	Description         *string
	Category            *string
	PricePerDay         *decimal.Decimal
	FairValuePrice      *decimal.Decimal
	Location            *string
	ZipCode             *string
	Availability        *Availability
	Condition           *Condition
	IsEmergency         *bool
	IsWeird             *bool
	IsBarterEnabled     *bool
	IsDeliveryAvailable *bool
	Images              []string
	Specs               map[string]string
	CO2SavedPerRental   *decimal.Decimal
	IsVerified          *bool
	IsFlagged           *bool
	FlagReason          *string
	ClearFlagReason     bool
}

// ListingFilter narrows a catalog search.  Only available listings are
// ever returned.
type ListingFilter struct {
	Category    string
	ZipCode     string
	IsEmergency *bool
	IsWeird     *bool
	Query       string
	Limit       int
}
