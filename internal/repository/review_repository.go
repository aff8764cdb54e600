package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// ReviewRepo is append-only.  A unique key on (rental_id, review_type)
// keeps one review per direction per rental.
type ReviewRepo struct{ q DBTX }

const reviewColumns = "id, rental_id, listing_id, from_user_id, to_user_id, rating, comment, review_type, created_at"

func (r *ReviewRepo) query(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		var comment sql.NullString
		if err := rows.Scan(&rv.ID, &rv.RentalID, &rv.ListingID, &rv.FromUserID, &rv.ToUserID,
			&rv.Rating, &comment, &rv.ReviewType, &rv.CreatedAt); err != nil {
			return nil, err
		}
		rv.Comment = nullStr(comment)
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Create inserts a review.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO reviews (rental_id, listing_id, from_user_id, to_user_id, rating, comment, review_type)
		VALUES (?,?,?,?,?,?,?)`,
		rv.RentalID, rv.ListingID, rv.FromUserID, rv.ToUserID, rv.Rating, rv.Comment, rv.ReviewType)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	rv.CreatedAt = time.Now().UTC()
	return nil
}

// ListByListing returns reviews for a listing, newest first.
func (r *ReviewRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.Review, error) {
	return r.query(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE listing_id=? ORDER BY created_at DESC, id DESC", listingID)
}

// ListByUser returns reviews received by a user, newest first.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	return r.query(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE to_user_id=? ORDER BY created_at DESC, id DESC", userID)
}
