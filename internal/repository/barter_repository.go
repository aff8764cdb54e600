package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
)

// BarterRepo persists barter offers.
type BarterRepo struct{ q DBTX }

const barterColumns = `id, listing_id, from_user_id, to_user_id, offered_item_description,
	offered_item_value, message, status, created_at, updated_at`

func scanOffer(row rowScanner) (model.BarterOffer, error) {
	var o model.BarterOffer
	var value decimal.NullDecimal
	var msg sql.NullString
	err := row.Scan(&o.ID, &o.ListingID, &o.FromUserID, &o.ToUserID, &o.OfferedItemDescription,
		&value, &msg, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if value.Valid {
		d := value.Decimal
		o.OfferedItemValue = &d
	}
	o.Message = nullStr(msg)
	return o, nil
}

func (r *BarterRepo) query(ctx context.Context, query string, args ...any) ([]model.BarterOffer, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BarterOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Create inserts an offer.
func (r *BarterRepo) Create(ctx context.Context, o *model.BarterOffer) error {
	var value any
	if o.OfferedItemValue != nil {
		value = *o.OfferedItemValue
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO barter_offers (listing_id, from_user_id, to_user_id, offered_item_description,
			offered_item_value, message, status) VALUES (?,?,?,?,?,?,?)`,
		o.ListingID, o.FromUserID, o.ToUserID, o.OfferedItemDescription, value, o.Message, o.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	o.ID = uint64(id)
	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

// GetByID fetches an offer.
func (r *BarterRepo) GetByID(ctx context.Context, id uint64) (model.BarterOffer, error) {
	o, err := scanOffer(r.q.QueryRowContext(ctx, "SELECT "+barterColumns+" FROM barter_offers WHERE id=? LIMIT 1", id))
	return o, notFound(err)
}

// ListByListing returns offers made against a listing.
func (r *BarterRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.BarterOffer, error) {
	return r.query(ctx, "SELECT "+barterColumns+" FROM barter_offers WHERE listing_id=? ORDER BY created_at DESC, id DESC", listingID)
}

// ListByUser returns offers sent or received by a user.
func (r *BarterRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BarterOffer, error) {
	return r.query(ctx,
		"SELECT "+barterColumns+" FROM barter_offers WHERE from_user_id=? OR to_user_id=? ORDER BY created_at DESC, id DESC",
		userID, userID)
}

// TransitionStatus is a compare-and-set on barter_offers.status.
func (r *BarterRepo) TransitionStatus(ctx context.Context, id uint64, from, to model.BarterStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE barter_offers SET status=? WHERE id=? AND status=?", to, id, from)
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
