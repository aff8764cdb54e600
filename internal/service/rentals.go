package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository"
)

// RentalService drives the rental lifecycle.  Creating a rental moves
// the listing from available to rented in the same transaction, so the
// listing's availability works as a lock rather than a hint.
type RentalService struct {
	store    repository.Store
	notifier Notifier
	log      zerolog.Logger
}

// NewRentalService returns a RentalService.  notifier may be nil.
func NewRentalService(store repository.Store, notifier Notifier, log zerolog.Logger) *RentalService {
	return &RentalService{store: store, notifier: notifier, log: log}
}

// RentalInput is a renter's booking request.
type RentalInput struct {
	ListingID      uint64    `json:"listing_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Notes          *string   `json:"notes"`
	MeetupLocation *string   `json:"meetup_location"`
}

const day = 24 * time.Hour

// RentalDays returns the whole-day count of [start, end), rounding any
// partial day up and never returning less than one.
func RentalDays(start, end time.Time) int64 {
	span := end.Sub(start)
	days := int64(span / day)
	if span%day != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// RentalTotal is price per day times RentalDays, rounded to cents.
func RentalTotal(pricePerDay decimal.Decimal, start, end time.Time) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(RentalDays(start, end))).Round(2)
}

// Create books a listing for the caller.
func (s *RentalService) Create(ctx context.Context, actor *model.User, in RentalInput) (model.Rental, error) {
	if err := requireUser(actor); err != nil {
		return model.Rental{}, err
	}
	if in.ListingID == 0 {
		return model.Rental{}, invalid("listing_id is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return model.Rental{}, invalid("start_date and end_date are required")
	}
	if !in.EndDate.After(in.StartDate) {
		return model.Rental{}, invalid("end_date must be after start_date")
	}

	var rental model.Rental
	var listing model.Listing
	err := s.store.InTx(ctx, func(st repository.Store) error {
		var err error
		listing, err = st.Listings().GetByID(ctx, in.ListingID)
		if err != nil {
			return fromRepo(err, "listing")
		}
		if listing.UserID == actor.ID {
			return invalid("you cannot rent your own listing")
		}
		err = st.Listings().TransitionAvailability(ctx, listing.ID, model.AvailabilityAvailable, model.AvailabilityRented)
		if errors.Is(err, repository.ErrConflict) {
			return conflict("listing is not available")
		}
		if err != nil {
			return fromRepo(err, "listing")
		}
		total := RentalTotal(listing.PricePerDay, in.StartDate, in.EndDate)
		if !total.IsPositive() {
			return invalid("rental total must be positive")
		}
		rental = model.Rental{
			ListingID:      listing.ID,
			RenterID:       actor.ID,
			OwnerID:        listing.UserID,
			StartDate:      in.StartDate.UTC(),
			EndDate:        in.EndDate.UTC(),
			TotalPrice:     total,
			Status:         model.RentalPending,
			PaymentStatus:  model.PaymentPending,
			Notes:          trimmed(in.Notes),
			MeetupLocation: trimmed(in.MeetupLocation),
		}
		return st.Rentals().Create(ctx, &rental)
	})
	if err != nil {
		return model.Rental{}, err
	}
	s.log.Info().Uint64("rental_id", rental.ID).Uint64("listing_id", listing.ID).
		Str("total", rental.TotalPrice.StringFixed(2)).Msg("rental requested")
	notify(s.notifier, s.log, queue.NotificationEvent{
		Kind:      queue.KindRentalRequested,
		UserID:    rental.OwnerID,
		Title:     "New rental request",
		Message:   fmt.Sprintf("%q was requested for %d day(s)", listing.Title, RentalDays(rental.StartDate, rental.EndDate)),
		RelatedID: rental.ID,
	})
	return rental, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Get returns a rental visible to its participants and admins.
func (s *RentalService) Get(ctx context.Context, actor *model.User, id uint64) (model.Rental, error) {
	if err := requireUser(actor); err != nil {
		return model.Rental{}, err
	}
	r, err := s.store.Rentals().GetByID(ctx, id)
	if err != nil {
		return model.Rental{}, fromRepo(err, "rental")
	}
	if !r.IsParticipant(actor.ID) && !actor.IsAdmin() {
		return model.Rental{}, forbidden("not a participant of this rental")
	}
	return r, nil
}

// MyRentals lists rentals the caller requested.
func (s *RentalService) MyRentals(ctx context.Context, actor *model.User) ([]model.Rental, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.store.Rentals().ListByRenter(ctx, actor.ID)
}

// OwnerRentals lists rentals of the caller's listings.
func (s *RentalService) OwnerRentals(ctx context.Context, actor *model.User) ([]model.Rental, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.store.Rentals().ListByOwner(ctx, actor.ID)
}

type party int

const (
	partyOwner party = 1 << iota
	partyRenter
)

// transition is one allowed edge of the rental state machine.
type transition struct {
	from  []model.RentalStatus
	actor party
}

var rentalTransitions = map[model.RentalStatus]transition{
	model.RentalConfirmed:  {from: []model.RentalStatus{model.RentalPending}, actor: partyOwner},
	model.RentalInProgress: {from: []model.RentalStatus{model.RentalConfirmed}, actor: partyOwner},
	model.RentalCompleted:  {from: []model.RentalStatus{model.RentalInProgress}, actor: partyOwner | partyRenter},
	model.RentalCanceled:   {from: []model.RentalStatus{model.RentalPending, model.RentalConfirmed}, actor: partyOwner | partyRenter},
}

// UpdateStatus advances a rental.  Admins may perform any allowed edge;
// other callers must be the party named for that edge.  Cancelling or
// completing releases the listing back to available.
func (s *RentalService) UpdateStatus(ctx context.Context, actor *model.User, id uint64, to model.RentalStatus) (model.Rental, error) {
	if err := requireUser(actor); err != nil {
		return model.Rental{}, err
	}
	edge, ok := rentalTransitions[to]
	if !ok {
		return model.Rental{}, invalid("cannot move a rental to %q", to)
	}

	var out model.Rental
	err := s.store.InTx(ctx, func(st repository.Store) error {
		r, err := st.Rentals().GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, "rental")
		}
		var who party
		if r.OwnerID == actor.ID {
			who |= partyOwner
		}
		if r.RenterID == actor.ID {
			who |= partyRenter
		}
		if !actor.IsAdmin() {
			if who == 0 {
				return forbidden("not a participant of this rental")
			}
			if who&edge.actor == 0 {
				return forbidden("you may not move this rental to %s", to)
			}
		}
		allowed := false
		for _, f := range edge.from {
			allowed = allowed || r.Status == f
		}
		if !allowed {
			return conflict("cannot move a %s rental to %s", r.Status, to)
		}
		if err := st.Rentals().TransitionStatus(ctx, id, r.Status, to); err != nil {
			return fromRepo(err, "rental")
		}
		if to == model.RentalCanceled || to == model.RentalCompleted {
			err := st.Listings().TransitionAvailability(ctx, r.ListingID, model.AvailabilityRented, model.AvailabilityAvailable)
			if err != nil && !errors.Is(err, repository.ErrConflict) && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		out, err = st.Rentals().GetByID(ctx, id)
		return fromRepo(err, "rental")
	})
	if err != nil {
		return model.Rental{}, err
	}
	s.log.Info().Uint64("rental_id", id).Str("status", string(to)).Uint64("actor_id", actor.ID).Msg("rental status changed")
	other := out.OwnerID
	if actor.ID == out.OwnerID {
		other = out.RenterID
	}
	notify(s.notifier, s.log, queue.NotificationEvent{
		Kind:      queue.KindRentalStatus,
		UserID:    other,
		Title:     "Rental updated",
		Message:   fmt.Sprintf("Rental #%d is now %s", id, to),
		RelatedID: id,
	})
	return out, nil
}
