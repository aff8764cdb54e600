package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

func newestFirst[T any](items []T, id func(T) uint64) []T {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(id(b), id(a)) })
	return items
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	defer r.s.lock()()
	d := r.s.data()
	for _, existing := range d.users {
		if existing.OpenID == u.OpenID {
			return repository.ErrDuplicate
		}
	}
	now := r.s.clock()
	u.ID = d.nextID()
	u.TokenBalance = 0
	u.LastSignedIn, u.CreatedAt, u.UpdatedAt = now, now, now
	d.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data().users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r userRepo) GetByOpenID(_ context.Context, openID string) (model.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data().users {
		if u.OpenID == openID {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r userRepo) mutate(id uint64, fn func(*model.User)) error {
	defer r.s.lock()()
	d := r.s.data()
	u, ok := d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = r.s.clock()
	d.users[id] = u
	return nil
}

func (r userRepo) UpdateLogin(_ context.Context, id uint64, email, name *string, at time.Time) error {
	return r.mutate(id, func(u *model.User) {
		if email != nil {
			u.Email = email
		}
		if name != nil {
			u.Name = name
		}
		u.LastSignedIn = at
	})
}

func (r userRepo) UpdateProfile(_ context.Context, id uint64, p model.ProfileUpdate) error {
	return r.mutate(id, func(u *model.User) {
		if p.DisplayName != nil {
			u.DisplayName = p.DisplayName
		}
		if p.Bio != nil {
			u.Bio = p.Bio
		}
		if p.Location != nil {
			u.Location = p.Location
		}
		if p.ZipCode != nil {
			u.ZipCode = p.ZipCode
		}
		if p.Phone != nil {
			u.Phone = p.Phone
		}
		if p.AccessibilityMode != nil {
			u.AccessibilityMode = *p.AccessibilityMode
		}
	})
}

func (r userRepo) SetRole(_ context.Context, id uint64, role model.Role) error {
	return r.mutate(id, func(u *model.User) { u.Role = role })
}

func (r userRepo) SetBan(_ context.Context, id uint64, banned bool, reason *string) error {
	return r.mutate(id, func(u *model.User) {
		u.IsBanned = banned
		u.BanReason = nil
		if banned {
			u.BanReason = reason
		}
	})
}

func (r userRepo) SetSubscription(_ context.Context, id uint64, s model.SubscriptionUpdate) error {
	return r.mutate(id, func(u *model.User) {
		if s.SubscriptionID != nil {
			u.SubscriptionID = s.SubscriptionID
		}
		u.SubscriptionTier = s.Tier
		u.SubscriptionStatus = s.Status
	})
}

func (r userRepo) SetStripeCustomer(_ context.Context, id uint64, customerID string) error {
	return r.mutate(id, func(u *model.User) { u.StripeCustomerID = &customerID })
}

func (r userRepo) AdjustTokenBalance(_ context.Context, id uint64, delta int64) (int64, error) {
	defer r.s.lock()()
	d := r.s.data()
	u, ok := d.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if u.TokenBalance+delta < 0 {
		return u.TokenBalance, repository.ErrInsufficientBalance
	}
	u.TokenBalance += delta
	d.users[id] = u
	return u.TokenBalance, nil
}

func (r userRepo) List(_ context.Context, limit, offset int) ([]model.User, error) {
	defer r.s.lock()()
	out := newestFirst(slices.Collect(maps.Values(r.s.data().users)), func(u model.User) uint64 { return u.ID })
	return page(out, limit, offset, 50, 500), nil
}

func (r userRepo) Count(_ context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.data().users)), nil
}

// listings

type listingRepo struct{ s *Store }

func copyListing(l model.Listing) model.Listing {
	l.Images = slices.Clone(l.Images)
	if l.Images == nil {
		l.Images = []string{}
	}
	specs := make(map[string]string, len(l.Specs))
	for k, v := range l.Specs {
		specs[k] = v
	}
	l.Specs = specs
	return l
}

func (r listingRepo) Create(_ context.Context, l *model.Listing) error {
	defer r.s.lock()()
	d := r.s.data()
	now := r.s.clock()
	l.ID = d.nextID()
	l.CreatedAt, l.UpdatedAt = now, now
	*l = copyListing(*l)
	d.listings[l.ID] = copyListing(*l)
	return nil
}

func (r listingRepo) GetByID(_ context.Context, id uint64) (model.Listing, error) {
	defer r.s.lock()()
	l, ok := r.s.data().listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return copyListing(l), nil
}

func (r listingRepo) filter(keep func(model.Listing) bool) []model.Listing {
	out := []model.Listing{}
	for _, l := range r.s.data().listings {
		if keep(l) {
			out = append(out, copyListing(l))
		}
	}
	return newestFirst(out, func(l model.Listing) uint64 { return l.ID })
}

func (r listingRepo) Search(_ context.Context, f model.ListingFilter) ([]model.Listing, error) {
	defer r.s.lock()()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := r.filter(func(l model.Listing) bool {
		switch {
		case l.Availability != model.AvailabilityAvailable:
			return false
		case f.Category != "" && l.Category != f.Category:
			return false
		case f.ZipCode != "" && (l.ZipCode == nil || *l.ZipCode != f.ZipCode):
			return false
		case f.IsEmergency != nil && l.IsEmergency != *f.IsEmergency:
			return false
		case f.IsWeird != nil && l.IsWeird != *f.IsWeird:
			return false
		case q != "" && !strings.Contains(strings.ToLower(l.Title), q):
			return false
		}
		return true
	})
	return page(out, f.Limit, 0, repository.DefaultSearchLimit, repository.MaxSearchLimit), nil
}

func (r listingRepo) ListByOwner(_ context.Context, ownerID uint64) ([]model.Listing, error) {
	defer r.s.lock()()
	return r.filter(func(l model.Listing) bool { return l.UserID == ownerID }), nil
}

func (r listingRepo) List(_ context.Context, limit, offset int) ([]model.Listing, error) {
	defer r.s.lock()()
	return page(r.filter(func(model.Listing) bool { return true }), limit, offset, 50, 500), nil
}

func (r listingRepo) ListFlagged(_ context.Context) ([]model.Listing, error) {
	defer r.s.lock()()
	return r.filter(func(l model.Listing) bool { return l.IsFlagged }), nil
}

func (r listingRepo) Update(_ context.Context, id uint64, p model.ListingPatch) error {
	defer r.s.lock()()
	d := r.s.data()
	l, ok := d.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = p.Description
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.PricePerDay != nil {
		l.PricePerDay = *p.PricePerDay
	}
	if p.FairValuePrice != nil {
		l.FairValuePrice = p.FairValuePrice
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.ZipCode != nil {
		l.ZipCode = p.ZipCode
	}
	if p.Availability != nil {
		l.Availability = *p.Availability
	}
	if p.Condition != nil {
		l.Condition = *p.Condition
	}
	if p.IsEmergency != nil {
		l.IsEmergency = *p.IsEmergency
	}
	if p.IsWeird != nil {
		l.IsWeird = *p.IsWeird
	}
	if p.IsBarterEnabled != nil {
		l.IsBarterEnabled = *p.IsBarterEnabled
	}
	if p.IsDeliveryAvailable != nil {
		l.IsDeliveryAvailable = *p.IsDeliveryAvailable
	}
	if p.Images != nil {
		l.Images = p.Images
	}
	if p.Specs != nil {
		l.Specs = p.Specs
	}
	if p.CO2SavedPerRental != nil {
		l.CO2SavedPerRental = *p.CO2SavedPerRental
	}
	if p.IsVerified != nil {
		l.IsVerified = *p.IsVerified
	}
	if p.IsFlagged != nil {
		l.IsFlagged = *p.IsFlagged
	}
	if p.ClearFlagReason {
		l.FlagReason = nil
	} else if p.FlagReason != nil {
		l.FlagReason = p.FlagReason
	}
	l.UpdatedAt = r.s.clock()
	d.listings[id] = copyListing(l)
	return nil
}

func (r listingRepo) Delete(_ context.Context, id uint64) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.listings[id]; !ok {
		return repository.ErrNotFound
	}
	for _, rt := range d.rentals {
		if rt.ListingID == id {
			return repository.ErrConflict
		}
	}
	delete(d.listings, id)
	return nil
}

func (r listingRepo) TransitionAvailability(_ context.Context, id uint64, from, to model.Availability) error {
	defer r.s.lock()()
	d := r.s.data()
	l, ok := d.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.Availability != from {
		return repository.ErrConflict
	}
	l.Availability = to
	l.UpdatedAt = r.s.clock()
	d.listings[id] = l
	return nil
}

func (r listingRepo) IncrementViews(_ context.Context, id uint64) error {
	defer r.s.lock()()
	d := r.s.data()
	if l, ok := d.listings[id]; ok {
		l.ViewCount++
		d.listings[id] = l
	}
	return nil
}

func (r listingRepo) Count(_ context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.data().listings)), nil
}

// rentals

type rentalRepo struct{ s *Store }

func (r rentalRepo) Create(_ context.Context, rt *model.Rental) error {
	defer r.s.lock()()
	d := r.s.data()
	now := r.s.clock()
	rt.ID = d.nextID()
	rt.CreatedAt, rt.UpdatedAt = now, now
	d.rentals[rt.ID] = *rt
	return nil
}

func (r rentalRepo) GetByID(_ context.Context, id uint64) (model.Rental, error) {
	defer r.s.lock()()
	rt, ok := r.s.data().rentals[id]
	if !ok {
		return model.Rental{}, repository.ErrNotFound
	}
	return rt, nil
}

func (r rentalRepo) GetByPaymentIntent(_ context.Context, paymentIntentID string) (model.Rental, error) {
	defer r.s.lock()()
	for _, rt := range r.s.data().rentals {
		if rt.StripePaymentIntentID != nil && *rt.StripePaymentIntentID == paymentIntentID {
			return rt, nil
		}
	}
	return model.Rental{}, repository.ErrNotFound
}

func (r rentalRepo) filter(keep func(model.Rental) bool) []model.Rental {
	out := []model.Rental{}
	for _, rt := range r.s.data().rentals {
		if keep(rt) {
			out = append(out, rt)
		}
	}
	return newestFirst(out, func(rt model.Rental) uint64 { return rt.ID })
}

func (r rentalRepo) ListByRenter(_ context.Context, renterID uint64) ([]model.Rental, error) {
	defer r.s.lock()()
	return r.filter(func(rt model.Rental) bool { return rt.RenterID == renterID }), nil
}

func (r rentalRepo) ListByOwner(_ context.Context, ownerID uint64) ([]model.Rental, error) {
	defer r.s.lock()()
	return r.filter(func(rt model.Rental) bool { return rt.OwnerID == ownerID }), nil
}

func (r rentalRepo) List(_ context.Context, limit, offset int) ([]model.Rental, error) {
	defer r.s.lock()()
	return page(r.filter(func(model.Rental) bool { return true }), limit, offset, 50, 500), nil
}

func (r rentalRepo) mutate(id uint64, fn func(*model.Rental) error) error {
	defer r.s.lock()()
	d := r.s.data()
	rt, ok := d.rentals[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&rt); err != nil {
		return err
	}
	rt.UpdatedAt = r.s.clock()
	d.rentals[id] = rt
	return nil
}

func (r rentalRepo) TransitionStatus(_ context.Context, id uint64, from, to model.RentalStatus) error {
	return r.mutate(id, func(rt *model.Rental) error {
		if rt.Status != from {
			return repository.ErrConflict
		}
		rt.Status = to
		return nil
	})
}

func (r rentalRepo) MarkPaid(_ context.Context, id uint64, paymentIntentID *string) error {
	return r.mutate(id, func(rt *model.Rental) error {
		if rt.PaymentStatus != model.PaymentPending ||
			(rt.Status != model.RentalPending && rt.Status != model.RentalConfirmed) {
			return repository.ErrConflict
		}
		rt.PaymentStatus = model.PaymentPaid
		rt.Status = model.RentalConfirmed
		if paymentIntentID != nil {
			rt.StripePaymentIntentID = paymentIntentID
		}
		return nil
	})
}

func (r rentalRepo) SetPaymentStatus(_ context.Context, id uint64, status model.PaymentStatus) error {
	return r.mutate(id, func(rt *model.Rental) error {
		rt.PaymentStatus = status
		return nil
	})
}

func (r rentalRepo) SetCheckoutSession(_ context.Context, id uint64, sessionID string) error {
	return r.mutate(id, func(rt *model.Rental) error {
		rt.StripeCheckoutSessionID = &sessionID
		return nil
	})
}

func (r rentalRepo) Count(_ context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.data().rentals)), nil
}

// reviews

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, rv *model.Review) error {
	defer r.s.lock()()
	d := r.s.data()
	for _, existing := range d.reviews {
		if existing.RentalID == rv.RentalID && existing.ReviewType == rv.ReviewType {
			return repository.ErrDuplicate
		}
	}
	rv.ID = d.nextID()
	rv.CreatedAt = r.s.clock()
	d.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) list(keep func(model.Review) bool) []model.Review {
	out := []model.Review{}
	for _, rv := range r.s.data().reviews {
		if keep(rv) {
			out = append(out, rv)
		}
	}
	return newestFirst(out, func(rv model.Review) uint64 { return rv.ID })
}

func (r reviewRepo) ListByListing(_ context.Context, listingID uint64) ([]model.Review, error) {
	defer r.s.lock()()
	return r.list(func(rv model.Review) bool { return rv.ListingID == listingID }), nil
}

func (r reviewRepo) ListByUser(_ context.Context, userID uint64) ([]model.Review, error) {
	defer r.s.lock()()
	return r.list(func(rv model.Review) bool { return rv.ToUserID == userID }), nil
}

// barter offers

type barterRepo struct{ s *Store }

func (r barterRepo) Create(_ context.Context, o *model.BarterOffer) error {
	defer r.s.lock()()
	d := r.s.data()
	now := r.s.clock()
	o.ID = d.nextID()
	o.CreatedAt, o.UpdatedAt = now, now
	d.offers[o.ID] = *o
	return nil
}

func (r barterRepo) GetByID(_ context.Context, id uint64) (model.BarterOffer, error) {
	defer r.s.lock()()
	o, ok := r.s.data().offers[id]
	if !ok {
		return model.BarterOffer{}, repository.ErrNotFound
	}
	return o, nil
}

func (r barterRepo) list(keep func(model.BarterOffer) bool) []model.BarterOffer {
	out := []model.BarterOffer{}
	for _, o := range r.s.data().offers {
		if keep(o) {
			out = append(out, o)
		}
	}
	return newestFirst(out, func(o model.BarterOffer) uint64 { return o.ID })
}

func (r barterRepo) ListByListing(_ context.Context, listingID uint64) ([]model.BarterOffer, error) {
	defer r.s.lock()()
	return r.list(func(o model.BarterOffer) bool { return o.ListingID == listingID }), nil
}

func (r barterRepo) ListByUser(_ context.Context, userID uint64) ([]model.BarterOffer, error) {
	defer r.s.lock()()
	return r.list(func(o model.BarterOffer) bool { return o.FromUserID == userID || o.ToUserID == userID }), nil
}

func (r barterRepo) TransitionStatus(_ context.Context, id uint64, from, to model.BarterStatus) error {
	defer r.s.lock()()
	d := r.s.data()
	o, ok := d.offers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.Status != from {
		return repository.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = r.s.clock()
	d.offers[id] = o
	return nil
}

// token ledger

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(_ context.Context, t *model.TokenTransaction) error {
	defer r.s.lock()()
	d := r.s.data()
	t.ID = d.nextID()
	t.CreatedAt = r.s.clock()
	d.ledger[t.ID] = *t
	return nil
}

func (r ledgerRepo) ListByUser(_ context.Context, userID uint64, limit int) ([]model.TokenTransaction, error) {
	defer r.s.lock()()
	out := []model.TokenTransaction{}
	for _, t := range r.s.data().ledger {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	out = newestFirst(out, func(t model.TokenTransaction) uint64 { return t.ID })
	return page(out, limit, 0, 100, 500), nil
}

func (r ledgerRepo) SumByUser(_ context.Context, userID uint64) (int64, error) {
	defer r.s.lock()()
	var sum int64
	for _, t := range r.s.data().ledger {
		if t.UserID == userID {
			sum += t.Amount
		}
	}
	return sum, nil
}

// support tickets

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, t *model.SupportTicket) error {
	defer r.s.lock()()
	d := r.s.data()
	now := r.s.clock()
	t.ID = d.nextID()
	t.CreatedAt, t.UpdatedAt = now, now
	d.tickets[t.ID] = *t
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id uint64) (model.SupportTicket, error) {
	defer r.s.lock()()
	t, ok := r.s.data().tickets[id]
	if !ok {
		return model.SupportTicket{}, repository.ErrNotFound
	}
	return t, nil
}

func (r ticketRepo) list(keep func(model.SupportTicket) bool) []model.SupportTicket {
	out := []model.SupportTicket{}
	for _, t := range r.s.data().tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	return newestFirst(out, func(t model.SupportTicket) uint64 { return t.ID })
}

func (r ticketRepo) List(_ context.Context, status *model.TicketStatus) ([]model.SupportTicket, error) {
	defer r.s.lock()()
	return r.list(func(t model.SupportTicket) bool { return status == nil || t.Status == *status }), nil
}

func (r ticketRepo) ListByUser(_ context.Context, userID uint64) ([]model.SupportTicket, error) {
	defer r.s.lock()()
	return r.list(func(t model.SupportTicket) bool { return t.UserID != nil && *t.UserID == userID }), nil
}

func (r ticketRepo) Update(_ context.Context, id uint64, p model.TicketPatch) error {
	defer r.s.lock()()
	d := r.s.data()
	t, ok := d.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AdminNotes != nil {
		t.AdminNotes = p.AdminNotes
	}
	if p.ResolvedAt != nil {
		t.ResolvedAt = p.ResolvedAt
	}
	t.UpdatedAt = r.s.clock()
	d.tickets[id] = t
	return nil
}

func (r ticketRepo) CountByStatus(_ context.Context, status model.TicketStatus) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, t := range r.s.data().tickets {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

// admin settings

type settingRepo struct{ s *Store }

func (r settingRepo) Get(_ context.Context, key string) (model.AdminSetting, error) {
	defer r.s.lock()()
	st, ok := r.s.data().settings[key]
	if !ok {
		return model.AdminSetting{}, repository.ErrNotFound
	}
	return st, nil
}

func (r settingRepo) Set(_ context.Context, key string, value *string) error {
	defer r.s.lock()()
	r.s.data().settings[key] = model.AdminSetting{Key: key, Value: value, UpdatedAt: r.s.clock()}
	return nil
}

func (r settingRepo) List(_ context.Context) ([]model.AdminSetting, error) {
	defer r.s.lock()()
	out := slices.Collect(maps.Values(r.s.data().settings))
	slices.SortFunc(out, func(a, b model.AdminSetting) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

// webhook events

type eventRepo struct{ s *Store }

func (r eventRepo) Record(_ context.Context, eventID, eventType string) (bool, error) {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.events[eventID]; ok {
		return false, nil
	}
	d.events[eventID] = eventType
	return true, nil
}

// refresh tokens

type refreshRepo struct{ s *Store }

func (r refreshRepo) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	defer r.s.lock()()
	d := r.s.data()
	d.refresh[tokenHash] = model.RefreshToken{
		ID: d.nextID(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: r.s.clock(),
	}
	return nil
}

func (r refreshRepo) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	defer r.s.lock()()
	t, ok := r.s.data().refresh[tokenHash]
	if !ok || t.RevokedAt != nil || r.s.clock().After(t.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

func (r refreshRepo) RevokeByHash(_ context.Context, tokenHash string) error {
	defer r.s.lock()()
	d := r.s.data()
	t, ok := d.refresh[tokenHash]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	now := r.s.clock()
	t.RevokedAt = &now
	d.refresh[tokenHash] = t
	return nil
}

func (r refreshRepo) RevokeAllForUser(_ context.Context, userID uint64) error {
	defer r.s.lock()()
	d := r.s.data()
	now := r.s.clock()
	for h, t := range d.refresh {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			d.refresh[h] = t
		}
	}
	return nil
}
