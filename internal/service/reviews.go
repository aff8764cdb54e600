package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// ReviewService records reviews of completed rentals.
type ReviewService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewReviewService returns a ReviewService.
func NewReviewService(store repository.Store, log zerolog.Logger) *ReviewService {
	return &ReviewService{store: store, log: log}
}

// ReviewInput is a new review.  The reviewee is derived from the rental.
type ReviewInput struct {
	RentalID   uint64           `json:"rental_id"`
	Rating     int              `json:"rating"`
	Comment    *string          `json:"comment"`
	ReviewType model.ReviewType `json:"review_type"`
}

// Create stores a review.  The rental must be completed and the caller
// must be the side the review direction names.
func (s *ReviewService) Create(ctx context.Context, actor *model.User, in ReviewInput) (model.Review, error) {
	if err := requireUser(actor); err != nil {
		return model.Review{}, err
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, invalid("rating must be between 1 and 5")
	}
	if in.Comment != nil && len(strings.TrimSpace(*in.Comment)) > 2000 {
		return model.Review{}, invalid("comment must be at most 2000 characters")
	}
	r, err := s.store.Rentals().GetByID(ctx, in.RentalID)
	if err != nil {
		return model.Review{}, fromRepo(err, "rental")
	}
	rv := model.Review{RentalID: r.ID, ListingID: r.ListingID, FromUserID: actor.ID, Rating: in.Rating,
		Comment: trimmed(in.Comment), ReviewType: in.ReviewType}
	switch in.ReviewType {
	case model.ReviewRenterToOwner:
		if r.RenterID != actor.ID {
			return model.Review{}, forbidden("only the renter may review the owner")
		}
		rv.ToUserID = r.OwnerID
	case model.ReviewOwnerToRenter:
		if r.OwnerID != actor.ID {
			return model.Review{}, forbidden("only the owner may review the renter")
		}
		rv.ToUserID = r.RenterID
	default:
		return model.Review{}, invalid("review_type must be renter_to_owner or owner_to_renter")
	}
	if r.Status != model.RentalCompleted {
		return model.Review{}, conflict("only completed rentals can be reviewed")
	}
	if err := s.store.Reviews().Create(ctx, &rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Review{}, conflict("this rental has already been reviewed")
		}
		return model.Review{}, err
	}
	return rv, nil
}

// ForUser lists reviews a user received.
func (s *ReviewService) ForUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	return s.store.Reviews().ListByUser(ctx, userID)
}
