package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

func TestCreateListingAwardsTokens(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)

	l, err := svc.Create(ctx, owner, ListingInput{
		Title: "  Cordless drill ", Category: "tools", PricePerDay: decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cordless drill", l.Title)
	assert.Equal(t, model.AvailabilityAvailable, l.Availability)
	assert.Equal(t, model.ConditionGood, l.Condition)
	assert.False(t, l.IsVerified)

	u, err := st.Users().GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(ListingAwardTokens), u.TokenBalance)
	hist, err := st.Ledger().ListByUser(ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.TokenEarn, hist[0].Type)
	require.NotNil(t, hist[0].RelatedID)
	assert.Equal(t, l.ID, *hist[0].RelatedID)
}

func TestCreateListingValidation(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)

	cases := map[string]ListingInput{
		"short title":   {Title: "ab", Category: "tools", PricePerDay: decimal.NewFromInt(5)},
		"zero price":    {Title: "Ladder", Category: "tools", PricePerDay: decimal.Zero},
		"no category":   {Title: "Ladder", PricePerDay: decimal.NewFromInt(5)},
		"bad condition": {Title: "Ladder", Category: "tools", PricePerDay: decimal.NewFromInt(5), Condition: "mint"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := svc.Create(ctx, nil, ListingInput{Title: "Ladder", Category: "tools", PricePerDay: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	all, err := st.Listings().List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearchReturnsOnlyAvailableNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)

	older := newListing(t, st, owner, "Tent for four", "20", false)
	newer := newListing(t, st, owner, "Camping stove", "8", false)
	hidden := newListing(t, st, owner, "Camping chair", "3", false)
	off := model.AvailabilityUnavailable
	require.NoError(t, st.Listings().Update(ctx, hidden.ID, model.ListingPatch{Availability: &off}))

	got, err := svc.Search(ctx, model.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	got, err = svc.Search(ctx, model.ListingFilter{Query: "camping"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	_, err = svc.Search(ctx, model.ListingFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)
	other := newUser(t, st, "other", model.RoleUser)
	admin := newUser(t, st, "admin", model.RoleAdmin)
	l := newListing(t, st, owner, "Kayak", "30", false)

	_, err := svc.Update(ctx, other, l.ID, ListingUpdate{Title: ptr("Stolen kayak")})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Update(ctx, admin, l.ID, ListingUpdate{Title: ptr("Sea kayak")})
	require.NoError(t, err)
	assert.Equal(t, "Sea kayak", got.Title)

	assert.ErrorIs(t, svc.Delete(ctx, other, l.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, l.ID))
	_, err = svc.Get(ctx, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerCannotReleaseRentedListing(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)
	l := newListing(t, st, owner, "Pressure washer", "25", false)
	require.NoError(t, st.Listings().TransitionAvailability(ctx, l.ID, model.AvailabilityAvailable, model.AvailabilityRented))

	on := model.AvailabilityAvailable
	_, err := svc.Update(ctx, owner, l.ID, ListingUpdate{Availability: &on})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, svc.Delete(ctx, owner, l.ID), ErrConflict)
}

func TestDeleteRejectsListingWithRentalHistory(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	rentals := NewRentalService(st, nil, nop)
	owner := newUser(t, st, "owner", model.RoleUser)
	renter := newUser(t, st, "renter", model.RoleUser)
	l := newListing(t, st, owner, "Tile saw", "35", false)
	r, err := rentals.Create(ctx, renter, RentalInput{ListingID: l.ID, StartDate: date("2025-06-01"), EndDate: date("2025-06-02")})
	require.NoError(t, err)
	_, err = rentals.UpdateStatus(ctx, renter, r.ID, model.RentalCanceled)
	require.NoError(t, err)

	err = svc.Delete(ctx, owner, l.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Get(ctx, l.ID)
	assert.NoError(t, err)

	off := model.AvailabilityUnavailable
	got, err := svc.Update(ctx, owner, l.ID, ListingUpdate{Availability: &off})
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityUnavailable, got.Availability)
}

func TestFlagRequiresReason(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewCatalogService(st, nop)
	owner := newUser(t, st, "owner", model.RoleUser)
	reporter := newUser(t, st, "reporter", model.RoleUser)
	l := newListing(t, st, owner, "Suspicious thing", "5", false)

	assert.ErrorIs(t, svc.Flag(ctx, reporter, l.ID, " "), ErrInvalidInput)
	require.NoError(t, svc.Flag(ctx, reporter, l.ID, "looks fake"))

	got, err := st.Listings().GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFlagged)
	require.NotNil(t, got.FlagReason)
	assert.Equal(t, "looks fake", *got.FlagReason)
}
