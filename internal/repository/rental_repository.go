package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// RentalRepo provides persistence for rentals.  Status changes are
// compare-and-set updates so two actors racing on the same rental
// cannot both win.
type RentalRepo struct{ q DBTX }

const rentalColumns = `id, listing_id, renter_id, owner_id, start_date, end_date, total_price,
	status, payment_status, notes, meetup_location, stripe_checkout_session_id,
	stripe_payment_intent_id, created_at, updated_at`

func scanRental(row rowScanner) (model.Rental, error) {
	var r model.Rental
	var notes, meetup, session, intent sql.NullString
	err := row.Scan(&r.ID, &r.ListingID, &r.RenterID, &r.OwnerID, &r.StartDate, &r.EndDate, &r.TotalPrice,
		&r.Status, &r.PaymentStatus, &notes, &meetup, &session, &intent, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Notes, r.MeetupLocation = nullStr(notes), nullStr(meetup)
	r.StripeCheckoutSessionID, r.StripePaymentIntentID = nullStr(session), nullStr(intent)
	return r, nil
}

func (r *RentalRepo) query(ctx context.Context, query string, args ...any) ([]model.Rental, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Rental{}
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Create inserts a rental.  The caller must supply status and payment
// status; the generated ID and timestamps are populated on rt.
func (r *RentalRepo) Create(ctx context.Context, rt *model.Rental) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO rentals (listing_id, renter_id, owner_id, start_date, end_date, total_price,
			status, payment_status, notes, meetup_location) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rt.ListingID, rt.RenterID, rt.OwnerID, rt.StartDate.UTC(), rt.EndDate.UTC(), rt.TotalPrice,
		rt.Status, rt.PaymentStatus, rt.Notes, rt.MeetupLocation)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rt.ID = uint64(id)
	rt.CreatedAt, rt.UpdatedAt = now, now
	return nil
}

// GetByID fetches a rental by id.
func (r *RentalRepo) GetByID(ctx context.Context, id uint64) (model.Rental, error) {
	rt, err := scanRental(r.q.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE id=? LIMIT 1", id))
	return rt, notFound(err)
}

// GetByPaymentIntent fetches the rental paid by the given payment intent.
func (r *RentalRepo) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (model.Rental, error) {
	rt, err := scanRental(r.q.QueryRowContext(ctx,
		"SELECT "+rentalColumns+" FROM rentals WHERE stripe_payment_intent_id=? LIMIT 1", paymentIntentID))
	return rt, notFound(err)
}

// ListByRenter returns the renter's rentals, newest first.
func (r *RentalRepo) ListByRenter(ctx context.Context, renterID uint64) ([]model.Rental, error) {
	return r.query(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE renter_id=? ORDER BY created_at DESC, id DESC", renterID)
}

// ListByOwner returns rentals of the owner's listings, newest first.
func (r *RentalRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Rental, error) {
	return r.query(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE owner_id=? ORDER BY created_at DESC, id DESC", ownerID)
}

// List returns all rentals for the admin panel.
func (r *RentalRepo) List(ctx context.Context, limit, offset int) ([]model.Rental, error) {
	return r.query(ctx, "SELECT "+rentalColumns+" FROM rentals ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		clampLimit(limit, 50, 500), max(offset, 0))
}

func (r *RentalRepo) cas(ctx context.Context, id uint64, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// TransitionStatus is a compare-and-set on rentals.status.
func (r *RentalRepo) TransitionStatus(ctx context.Context, id uint64, from, to model.RentalStatus) error {
	return r.cas(ctx, id, "UPDATE rentals SET status=? WHERE id=? AND status=?", to, id, from)
}

// MarkPaid confirms a pending or confirmed rental whose payment is still
// pending.  Any other rental returns ErrConflict.
func (r *RentalRepo) MarkPaid(ctx context.Context, id uint64, paymentIntentID *string) error {
	return r.cas(ctx, id,
		`UPDATE rentals SET payment_status='paid', status='confirmed',
			stripe_payment_intent_id=COALESCE(?, stripe_payment_intent_id)
		WHERE id=? AND payment_status='pending' AND status IN ('pending','confirmed')`, paymentIntentID, id)
}

// SetPaymentStatus overwrites the payment axis.
func (r *RentalRepo) SetPaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE rentals SET payment_status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetCheckoutSession records the last checkout session created for a rental.
func (r *RentalRepo) SetCheckoutSession(ctx context.Context, id uint64, sessionID string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE rentals SET stripe_checkout_session_id=? WHERE id=?", sessionID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Count returns the number of rentals.
func (r *RentalRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM rentals").Scan(&n)
	return n, err
}
