package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

func TestAdminOperationsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	u := newUser(t, st, "u", model.RoleUser)

	_, err := svc.Stats(ctx, u)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Ban(ctx, u, u.ID, "spam"), ErrForbidden)
	assert.ErrorIs(t, svc.SetRole(ctx, u, u.ID, model.RoleAdmin), ErrForbidden)
	_, err = svc.Settings(ctx, u)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Users(ctx, nil, 10, 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestBanAndPromote(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	admin := newUser(t, st, "admin", model.RoleAdmin)
	u := newUser(t, st, "u", model.RoleUser)
	require.NoError(t, st.RefreshTokens().StoreRefresh(ctx, u.ID, "hash", date("2999-01-01")))

	assert.ErrorIs(t, svc.Ban(ctx, admin, u.ID, ""), ErrInvalidInput)
	assert.ErrorIs(t, svc.Ban(ctx, admin, admin.ID, "oops"), ErrInvalidInput)
	require.NoError(t, svc.Ban(ctx, admin, u.ID, "scam listings"))

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)
	require.NotNil(t, got.BanReason)
	assert.Equal(t, "scam listings", *got.BanReason)
	_, err = st.RefreshTokens().ValidateRefresh(ctx, "hash")
	assert.Error(t, err)

	require.NoError(t, svc.Unban(ctx, admin, u.ID))
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBanned)
	assert.Nil(t, got.BanReason)

	require.NoError(t, svc.SetRole(ctx, admin, u.ID, model.RoleAdmin))
	got, err = st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	assert.ErrorIs(t, svc.SetRole(ctx, admin, admin.ID, model.RoleUser), ErrInvalidInput)
	assert.ErrorIs(t, svc.SetRole(ctx, admin, 999, model.RoleAdmin), ErrNotFound)
}

func TestApproveAndRemoveListing(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	admin := newUser(t, st, "admin", model.RoleAdmin)
	owner := newUser(t, st, "owner", model.RoleUser)
	l := newListing(t, st, owner, "Metal detector", "12", false)
	require.NoError(t, NewCatalogService(st, nop).Flag(ctx, owner, l.ID, "duplicate"))

	flagged, err := svc.FlaggedListings(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, flagged, 1)

	got, err := svc.ApproveListing(ctx, admin, l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.False(t, got.IsFlagged)
	assert.Nil(t, got.FlagReason)

	_, err = svc.RemoveListing(ctx, admin, l.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	got, err = svc.RemoveListing(ctx, admin, l.ID, "prohibited item")
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityUnavailable, got.Availability)
	assert.True(t, got.IsFlagged)
	require.NotNil(t, got.FlagReason)
	assert.Equal(t, "prohibited item", *got.FlagReason)
}

func TestRemovedListingStaysHidden(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	catalog := NewCatalogService(st, nop)
	rentals := NewRentalService(st, nil, nop)
	admin := newUser(t, st, "admin", model.RoleAdmin)
	owner := newUser(t, st, "owner", model.RoleUser)
	renter := newUser(t, st, "renter", model.RoleUser)
	l := newListing(t, st, owner, "Fireworks kit", "40", false)
	r, err := rentals.Create(ctx, renter, RentalInput{ListingID: l.ID, StartDate: date("2025-06-01"), EndDate: date("2025-06-03")})
	require.NoError(t, err)

	got, err := svc.RemoveListing(ctx, admin, l.ID, "prohibited item")
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityUnavailable, got.Availability)

	_, err = rentals.UpdateStatus(ctx, renter, r.ID, model.RentalCanceled)
	require.NoError(t, err)
	got, err = st.Listings().GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityUnavailable, got.Availability)

	on := model.AvailabilityAvailable
	_, err = catalog.Update(ctx, owner, l.ID, ListingUpdate{Availability: &on})
	assert.ErrorIs(t, err, ErrForbidden)
	got, err = catalog.Update(ctx, owner, l.ID, ListingUpdate{Title: ptr("Party kit")})
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityUnavailable, got.Availability)

	got, err = catalog.Update(ctx, admin, l.ID, ListingUpdate{Availability: &on})
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityAvailable, got.Availability)
}

func TestTicketTriageAndStats(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	admin := newUser(t, st, "admin", model.RoleAdmin)
	owner := newUser(t, st, "owner", model.RoleUser)
	newListing(t, st, owner, "Bread maker", "7", false)
	tk, err := NewSupportService(st, nil, 0, nop).Create(ctx, nil, validTicket())
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, model.DashboardStats{Users: 2, Listings: 1, Rentals: 0, OpenTickets: 1}, stats)

	bad := model.TicketStatus("lost")
	_, err = svc.UpdateTicket(ctx, admin, tk.ID, model.TicketPatch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	resolved, high := model.TicketResolved, model.PriorityHigh
	got, err := svc.UpdateTicket(ctx, admin, tk.ID, model.TicketPatch{Status: &resolved, Priority: &high, AdminNotes: ptr("refunded")})
	require.NoError(t, err)
	assert.Equal(t, model.TicketResolved, got.Status)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.NotNil(t, got.ResolvedAt)

	open := model.TicketOpen
	list, err := svc.Tickets(ctx, admin, &open)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = svc.Tickets(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewAdminService(st, nop)
	admin := newUser(t, st, "admin", model.RoleAdmin)

	_, err := svc.Setting(ctx, admin, "maintenance")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetSetting(ctx, admin, " ", ptr("on"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	s, err := svc.SetSetting(ctx, admin, "maintenance", ptr("on"))
	require.NoError(t, err)
	require.NotNil(t, s.Value)
	assert.Equal(t, "on", *s.Value)
	s, err = svc.SetSetting(ctx, admin, "maintenance", nil)
	require.NoError(t, err)
	assert.Nil(t, s.Value)

	all, err := svc.Settings(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
