package model

import "time"

// ReviewType is the direction of a review.
type ReviewType string

const (
	ReviewRenterToOwner ReviewType = "renter_to_owner"
	ReviewOwnerToRenter ReviewType = "owner_to_renter"
)

// Review is an append-only rating left after a completed rental.
type Review struct {
	ID         uint64     `json:"id"`                // reviews.id
	RentalID   uint64     `json:"rental_id"`         // reviews.rental_id
	ListingID  uint64     `json:"listing_id"`        // reviews.listing_id
	FromUserID uint64     `json:"from_user_id"`      // reviews.from_user_id
	ToUserID   uint64     `json:"to_user_id"`        // reviews.to_user_id
	Rating     int        `json:"rating"`            // reviews.rating (1-5)
	Comment    *string    `json:"comment,omitempty"` // reviews.comment
	ReviewType ReviewType `json:"review_type"`       // reviews.review_type
	CreatedAt  time.Time  `json:"created_at"`        // reviews.created_at
}
