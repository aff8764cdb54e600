package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentalStatus is the operational state of a rental booking.
type RentalStatus string

const (
	RentalPending    RentalStatus = "pending"
	RentalConfirmed  RentalStatus = "confirmed"
	RentalInProgress RentalStatus = "in_progress"
	RentalCompleted  RentalStatus = "completed"
	RentalCanceled   RentalStatus = "canceled"
)

// Valid reports whether s is a known rental status.
func (s RentalStatus) Valid() bool {
	switch s {
	case RentalPending, RentalConfirmed, RentalInProgress, RentalCompleted, RentalCanceled:
		return true
	}
	return false
}

// PaymentStatus is the payment axis of a rental.  It only moves through
// the payment webhook.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Rental records a renter's booking of a listing for a date range.
//
// Fields:
//
//	ID                      – primary key identifier.
//	ListingID               – listing being rented.
//	RenterID                – user who requested the rental.
//	OwnerID                 – listing owner frozen at creation time.
//	StartDate, EndDate      – requested lease window (EndDate > StartDate).
//	TotalPrice              – price per day × whole days, two decimals.
//	Status, PaymentStatus   – lifecycle and payment axes.
//	StripeCheckoutSessionID – last checkout session created for it.
//	StripePaymentIntentID   – payment intent reported by the webhook.
type Rental struct {
	ID                      uint64          `json:"id"`                                   // rentals.id
	ListingID               uint64          `json:"listing_id"`                           // rentals.listing_id
	RenterID                uint64          `json:"renter_id"`                            // rentals.renter_id
	OwnerID                 uint64          `json:"owner_id"`                             // rentals.owner_id
	StartDate               time.Time       `json:"start_date"`                           // rentals.start_date
	EndDate                 time.Time       `json:"end_date"`                             // rentals.end_date
	TotalPrice              decimal.Decimal `json:"total_price"`                          // rentals.total_price
	Status                  RentalStatus    `json:"status"`                               // rentals.status
	PaymentStatus           PaymentStatus   `json:"payment_status"`                       // rentals.payment_status
	Notes                   *string         `json:"notes,omitempty"`                      // rentals.notes
	MeetupLocation          *string         `json:"meetup_location,omitempty"`            // rentals.meetup_location
	StripeCheckoutSessionID *string         `json:"stripe_checkout_session_id,omitempty"` // rentals.stripe_checkout_session_id
	StripePaymentIntentID   *string         `json:"stripe_payment_intent_id,omitempty"`   // rentals.stripe_payment_intent_id
	CreatedAt               time.Time       `json:"created_at"`                           // rentals.created_at
	UpdatedAt               time.Time       `json:"updated_at"`                           // rentals.updated_at
}

// IsParticipant reports whether userID is the renter or the owner.
func (r Rental) IsParticipant(userID uint64) bool {
	return r.RenterID == userID || r.OwnerID == userID
}
