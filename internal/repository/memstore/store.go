// Package memstore is an in-memory implementation of repository.Store.
// Transactions work on a copy of the whole data set that replaces the
// committed state only when the transaction function returns nil, so
// tests observe the same all-or-nothing behaviour as MySQL.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

type data struct {
	seq      uint64
	users    map[uint64]model.User
	listings map[uint64]model.Listing
	rentals  map[uint64]model.Rental
	reviews  map[uint64]model.Review
	offers   map[uint64]model.BarterOffer
	ledger   map[uint64]model.TokenTransaction
	tickets  map[uint64]model.SupportTicket
	settings map[string]model.AdminSetting
	events   map[string]string
	refresh  map[string]model.RefreshToken
}

func newData() *data {
	return &data{
		users:    map[uint64]model.User{},
		listings: map[uint64]model.Listing{},
		rentals:  map[uint64]model.Rental{},
		reviews:  map[uint64]model.Review{},
		offers:   map[uint64]model.BarterOffer{},
		ledger:   map[uint64]model.TokenTransaction{},
		tickets:  map[uint64]model.SupportTicket{},
		settings: map[string]model.AdminSetting{},
		events:   map[string]string{},
		refresh:  map[string]model.RefreshToken{},
	}
}

func (d *data) clone() *data {
	return &data{
		seq:      d.seq,
		users:    maps.Clone(d.users),
		listings: maps.Clone(d.listings),
		rentals:  maps.Clone(d.rentals),
		reviews:  maps.Clone(d.reviews),
		offers:   maps.Clone(d.offers),
		ledger:   maps.Clone(d.ledger),
		tickets:  maps.Clone(d.tickets),
		settings: maps.Clone(d.settings),
		events:   maps.Clone(d.events),
		refresh:  maps.Clone(d.refresh),
	}
}

func (d *data) nextID() uint64 {
	d.seq++
	return d.seq
}

// Store implements repository.Store in memory.  The zero value is not
// usable; call New.
type Store struct {
	mu   *sync.Mutex
	root *Store
	d    *data
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{mu: &sync.Mutex{}, d: newData(), now: func() time.Time { return time.Now().UTC() }}
	s.root = s
	return s
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) { s.root.now = now }

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Listings() repository.ListingRepository           { return listingRepo{s} }
func (s *Store) Rentals() repository.RentalRepository             { return rentalRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository             { return reviewRepo{s} }
func (s *Store) Barter() repository.BarterRepository              { return barterRepo{s} }
func (s *Store) Ledger() repository.LedgerRepository              { return ledgerRepo{s} }
func (s *Store) Tickets() repository.TicketRepository             { return ticketRepo{s} }
func (s *Store) Settings() repository.SettingRepository           { return settingRepo{s} }
func (s *Store) WebhookEvents() repository.WebhookEventRepository { return eventRepo{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return refreshRepo{s} }

// InTx serialises transactions and commits the working copy when fn
// succeeds.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Store{mu: s.mu, root: s.root, d: s.root.d.clone(), inTx: true, now: s.root.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.root.d = tx.d
	return nil
}

func (s *Store) data() *data {
	if s.inTx {
		return s.d
	}
	return s.root.d
}

func (s *Store) clock() time.Time { return s.root.now() }

func page[T any](items []T, limit, offset, def, ceil int) []T {
	if limit <= 0 {
		limit = def
	}
	if limit > ceil {
		limit = ceil
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
