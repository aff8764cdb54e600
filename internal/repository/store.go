package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by the repositories.
// Every repository runs unchanged inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups every repository of the ledger store.  InTx runs fn
// against a Store bound to a single transaction; the transaction commits
// only when fn returns nil.  Nested InTx calls reuse the outer transaction.
type Store interface {
	Users() UserRepository
	Listings() ListingRepository
	Rentals() RentalRepository
	Reviews() ReviewRepository
	Barter() BarterRepository
	Ledger() LedgerRepository
	Tickets() TicketRepository
	Settings() SettingRepository
	WebhookEvents() WebhookEventRepository
	RefreshTokens() RefreshTokenRepository
	InTx(ctx context.Context, fn func(Store) error) error
}

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByOpenID(ctx context.Context, openID string) (model.User, error)
	UpdateLogin(ctx context.Context, id uint64, email, name *string, at time.Time) error
	UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error
	SetRole(ctx context.Context, id uint64, role model.Role) error
	SetBan(ctx context.Context, id uint64, banned bool, reason *string) error
	SetSubscription(ctx context.Context, id uint64, s model.SubscriptionUpdate) error
	SetStripeCustomer(ctx context.Context, id uint64, customerID string) error
	// AdjustTokenBalance adds delta to the cached balance in one atomic
	// statement and returns the new balance.  It fails with
	// ErrInsufficientBalance when the result would be negative.
	AdjustTokenBalance(ctx context.Context, id uint64, delta int64) (int64, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

// ListingRepository persists listings.
type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id uint64) (model.Listing, error)
	Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error)
	List(ctx context.Context, limit, offset int) ([]model.Listing, error)
	ListFlagged(ctx context.Context) ([]model.Listing, error)
	Update(ctx context.Context, id uint64, p model.ListingPatch) error
	// Delete returns ErrConflict while any rental references the listing.
	Delete(ctx context.Context, id uint64) error
	// TransitionAvailability moves availability from -> to.  It returns
	// ErrConflict when the listing is not currently in state from.
	TransitionAvailability(ctx context.Context, id uint64, from, to model.Availability) error
	IncrementViews(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
}

// RentalRepository persists rentals.
type RentalRepository interface {
	Create(ctx context.Context, r *model.Rental) error
	GetByID(ctx context.Context, id uint64) (model.Rental, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (model.Rental, error)
	ListByRenter(ctx context.Context, renterID uint64) ([]model.Rental, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Rental, error)
	List(ctx context.Context, limit, offset int) ([]model.Rental, error)
	// TransitionStatus moves status from -> to and returns ErrConflict
	// when the rental is not currently in state from.
	TransitionStatus(ctx context.Context, id uint64, from, to model.RentalStatus) error
	// MarkPaid sets payment_status=paid and status=confirmed in one statement.
	MarkPaid(ctx context.Context, id uint64, paymentIntentID *string) error
	SetPaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error
	SetCheckoutSession(ctx context.Context, id uint64, sessionID string) error
	Count(ctx context.Context) (int64, error)
}

// ReviewRepository persists reviews.  Create returns ErrDuplicate when a
// review already exists for the rental in the same direction.
type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	ListByListing(ctx context.Context, listingID uint64) ([]model.Review, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Review, error)
}

// BarterRepository persists barter offers.
type BarterRepository interface {
	Create(ctx context.Context, o *model.BarterOffer) error
	GetByID(ctx context.Context, id uint64) (model.BarterOffer, error)
	ListByListing(ctx context.Context, listingID uint64) ([]model.BarterOffer, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BarterOffer, error)
	// TransitionStatus returns ErrConflict when the offer is not in state from.
	TransitionStatus(ctx context.Context, id uint64, from, to model.BarterStatus) error
}

// LedgerRepository is the append-only token transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, t *model.TokenTransaction) error
	ListByUser(ctx context.Context, userID uint64, limit int) ([]model.TokenTransaction, error)
	SumByUser(ctx context.Context, userID uint64) (int64, error)
}

// TicketRepository persists support tickets.
type TicketRepository interface {
	Create(ctx context.Context, t *model.SupportTicket) error
	GetByID(ctx context.Context, id uint64) (model.SupportTicket, error)
	List(ctx context.Context, status *model.TicketStatus) ([]model.SupportTicket, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.SupportTicket, error)
	Update(ctx context.Context, id uint64, p model.TicketPatch) error
	CountByStatus(ctx context.Context, status model.TicketStatus) (int64, error)
}

// SettingRepository is a string key/value table.
type SettingRepository interface {
	Get(ctx context.Context, key string) (model.AdminSetting, error)
	Set(ctx context.Context, key string, value *string) error
	List(ctx context.Context) ([]model.AdminSetting, error)
}

// WebhookEventRepository remembers processed payment events.
type WebhookEventRepository interface {
	// Record stores eventID and reports whether it was newly inserted.
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

// RefreshTokenRepository persists refresh token hashes.
type RefreshTokenRepository interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// MySQLStore implements Store on top of database/sql.
type MySQLStore struct {
	db *sql.DB
	q  DBTX
	tx *sql.Tx
}

// NewMySQLStore returns a Store bound to the given pool.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db, q: db} }

func (s *MySQLStore) Users() UserRepository                 { return &UserRepo{q: s.q} }
func (s *MySQLStore) Listings() ListingRepository           { return &ListingRepo{q: s.q} }
func (s *MySQLStore) Rentals() RentalRepository             { return &RentalRepo{q: s.q} }
func (s *MySQLStore) Reviews() ReviewRepository             { return &ReviewRepo{q: s.q} }
func (s *MySQLStore) Barter() BarterRepository              { return &BarterRepo{q: s.q} }
func (s *MySQLStore) Ledger() LedgerRepository              { return &LedgerRepo{q: s.q} }
func (s *MySQLStore) Tickets() TicketRepository             { return &TicketRepo{q: s.q} }
func (s *MySQLStore) Settings() SettingRepository           { return &SettingRepo{q: s.q} }
func (s *MySQLStore) WebhookEvents() WebhookEventRepository { return &WebhookEventRepo{q: s.q} }
func (s *MySQLStore) RefreshTokens() RefreshTokenRepository { return &RefreshTokenRepo{q: s.q} }

// InTx begins a transaction, runs fn and commits.  Any error from fn
// rolls the transaction back.
func (s *MySQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&MySQLStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

// requireAffected returns ErrNotFound when an UPDATE/DELETE touched no row.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func clampLimit(limit, def, ceil int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, ceil)
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
