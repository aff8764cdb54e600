package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// CatalogService manages listings.
type CatalogService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewCatalogService returns a CatalogService.
func NewCatalogService(store repository.Store, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, log: log}
}

// ListingInput carries the owner-editable listing fields.
type ListingInput struct {
	Title               string            `json:"title"`
	Description         *string           `json:"description"`
	Category            string            `json:"category"`
	PricePerDay         decimal.Decimal   `json:"price_per_day"`
	FairValuePrice      *decimal.Decimal  `json:"fair_value_price"`
	Location            string            `json:"location"`
	ZipCode             *string           `json:"zip_code"`
	Condition           model.Condition   `json:"condition"`
	IsEmergency         bool              `json:"is_emergency"`
	IsWeird             bool              `json:"is_weird"`
	IsBarterEnabled     bool              `json:"is_barter_enabled"`
	IsDeliveryAvailable bool              `json:"is_delivery_available"`
	Images              []string          `json:"images"`
	Specs               map[string]string `json:"specs"`
	CO2SavedPerRental   *decimal.Decimal  `json:"co2_saved_per_rental"`
}

// ListingUpdate is a partial owner update.
type ListingUpdate struct {
	Title               *string             `json:"title"`
	Description         *string             `json:"description"`
	Category            *string             `json:"category"`
	PricePerDay         *decimal.Decimal    `json:"price_per_day"`
	Location            *string             `json:"location"`
	ZipCode             *string             `json:"zip_code"`
	Availability        *model.Availability `json:"availability"`
	Condition           *model.Condition    `json:"condition"`
	IsEmergency         *bool               `json:"is_emergency"`
	IsWeird             *bool               `json:"is_weird"`
	IsBarterEnabled     *bool               `json:"is_barter_enabled"`
	IsDeliveryAvailable *bool               `json:"is_delivery_available"`
	Images              []string            `json:"images"`
	Specs               map[string]string   `json:"specs"`
}

const (
	minTitleLen = 3
	maxTitleLen = 255
)

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < minTitleLen {
		return invalid("title must be at least %d characters", minTitleLen)
	}
	if n > maxTitleLen {
		return invalid("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return invalid("price per day must be positive")
	}
	return nil
}

// Create validates and stores a new listing, then awards the owner in
// the same transaction.
func (s *CatalogService) Create(ctx context.Context, actor *model.User, in ListingInput) (model.Listing, error) {
	if err := requireUser(actor); err != nil {
		return model.Listing{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return model.Listing{}, err
	}
	if err := validatePrice(in.PricePerDay); err != nil {
		return model.Listing{}, err
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return model.Listing{}, invalid("category is required")
	}
	if in.Condition == "" {
		in.Condition = model.ConditionGood
	}
	if !in.Condition.Valid() {
		return model.Listing{}, invalid("unknown condition %q", in.Condition)
	}
	l := model.Listing{
		UserID:              actor.ID,
		Title:               in.Title,
		Description:         in.Description,
		Category:            in.Category,
		PricePerDay:         in.PricePerDay.Round(2),
		FairValuePrice:      in.FairValuePrice,
		Location:            strings.TrimSpace(in.Location),
		ZipCode:             in.ZipCode,
		Availability:        model.AvailabilityAvailable,
		Condition:           in.Condition,
		IsEmergency:         in.IsEmergency,
		IsWeird:             in.IsWeird,
		IsBarterEnabled:     in.IsBarterEnabled,
		IsDeliveryAvailable: in.IsDeliveryAvailable,
		Images:              in.Images,
		Specs:               in.Specs,
		CO2SavedPerRental:   decimal.Zero,
	}
	if in.CO2SavedPerRental != nil {
		l.CO2SavedPerRental = *in.CO2SavedPerRental
	}
	err := s.store.InTx(ctx, func(st repository.Store) error {
		if err := st.Listings().Create(ctx, &l); err != nil {
			return err
		}
		id := l.ID
		_, err := applyTokens(ctx, st, actor.ID, ListingAwardTokens, model.TokenEarn, "Listed an item", &id)
		return err
	})
	if err != nil {
		return model.Listing{}, err
	}
	s.log.Info().Uint64("listing_id", l.ID).Uint64("owner_id", actor.ID).Msg("listing created")
	return l, nil
}

// Get returns a listing and counts the view in the background.
func (s *CatalogService) Get(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := s.store.Listings().GetByID(ctx, id)
	if err != nil {
		return model.Listing{}, fromRepo(err, "listing")
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.store.Listings().IncrementViews(ctx, id); err != nil {
			s.log.Debug().Err(err).Uint64("listing_id", id).Msg("view increment failed")
		}
	}()
	return l, nil
}

// Search returns available listings matching f.
func (s *CatalogService) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	if f.Limit < 0 {
		return nil, invalid("limit must not be negative")
	}
	return s.store.Listings().Search(ctx, f)
}

// MyListings returns the caller's own listings in every state.
func (s *CatalogService) MyListings(ctx context.Context, actor *model.User) ([]model.Listing, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.store.Listings().ListByOwner(ctx, actor.ID)
}

// loadOwned fetches a listing the actor owns or, for admins, any listing.
func loadOwned(ctx context.Context, st repository.Store, actor *model.User, id uint64) (model.Listing, error) {
	l, err := st.Listings().GetByID(ctx, id)
	if err != nil {
		return model.Listing{}, fromRepo(err, "listing")
	}
	if l.UserID != actor.ID && !actor.IsAdmin() {
		return model.Listing{}, forbidden("only the owner may modify this listing")
	}
	return l, nil
}

// Update applies a partial update.  Availability may only be toggled
// between available and unavailable, and never while a rental holds it.
// Owners cannot toggle availability on a flagged listing; only an admin
// can lift a moderation hold.
func (s *CatalogService) Update(ctx context.Context, actor *model.User, id uint64, in ListingUpdate) (model.Listing, error) {
	if err := requireUser(actor); err != nil {
		return model.Listing{}, err
	}
	p := model.ListingPatch{
		Description: in.Description, Location: in.Location, ZipCode: in.ZipCode,
		IsEmergency: in.IsEmergency, IsWeird: in.IsWeird, IsBarterEnabled: in.IsBarterEnabled,
		IsDeliveryAvailable: in.IsDeliveryAvailable, Images: in.Images, Specs: in.Specs,
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if err := validateTitle(t); err != nil {
			return model.Listing{}, err
		}
		p.Title = &t
	}
	if in.Category != nil {
		c := strings.TrimSpace(*in.Category)
		if c == "" {
			return model.Listing{}, invalid("category must not be empty")
		}
		p.Category = &c
	}
	if in.PricePerDay != nil {
		if err := validatePrice(*in.PricePerDay); err != nil {
			return model.Listing{}, err
		}
		price := in.PricePerDay.Round(2)
		p.PricePerDay = &price
	}
	if in.Condition != nil && !in.Condition.Valid() {
		return model.Listing{}, invalid("unknown condition %q", *in.Condition)
	}
	p.Condition = in.Condition
	if in.Availability != nil {
		if *in.Availability != model.AvailabilityAvailable && *in.Availability != model.AvailabilityUnavailable {
			return model.Listing{}, invalid("availability may only be set to available or unavailable")
		}
		p.Availability = in.Availability
	}

	var out model.Listing
	err := s.store.InTx(ctx, func(st repository.Store) error {
		l, err := loadOwned(ctx, st, actor, id)
		if err != nil {
			return err
		}
		if p.Availability != nil && l.Availability == model.AvailabilityRented {
			return conflict("listing is currently rented")
		}
		if p.Availability != nil && l.IsFlagged && !actor.IsAdmin() {
			return forbidden("listing is under moderation")
		}
		if err := st.Listings().Update(ctx, id, p); err != nil {
			return fromRepo(err, "listing")
		}
		out, err = st.Listings().GetByID(ctx, id)
		return fromRepo(err, "listing")
	})
	return out, err
}

// Delete removes a listing that has never been rented.
func (s *CatalogService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(st repository.Store) error {
		l, err := loadOwned(ctx, st, actor, id)
		if err != nil {
			return err
		}
		if l.Availability == model.AvailabilityRented {
			return conflict("listing is currently rented")
		}
		err = st.Listings().Delete(ctx, id)
		if errors.Is(err, repository.ErrConflict) {
			return conflict("listing has rental history; mark it unavailable instead")
		}
		return fromRepo(err, "listing")
	})
}

// Flag reports a listing for moderation.
func (s *CatalogService) Flag(ctx context.Context, actor *model.User, id uint64, reason string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason is required")
	}
	flagged := true
	err := s.store.Listings().Update(ctx, id, model.ListingPatch{IsFlagged: &flagged, FlagReason: &reason})
	if err != nil {
		return fromRepo(err, "listing")
	}
	s.log.Info().Uint64("listing_id", id).Uint64("reporter_id", actor.ID).Msg("listing flagged")
	return nil
}

// Reviews returns reviews left on a listing.
func (s *CatalogService) Reviews(ctx context.Context, id uint64) ([]model.Review, error) {
	return s.store.Reviews().ListByListing(ctx, id)
}
