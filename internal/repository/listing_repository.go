package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
)

// ListingRepo reads and writes the `listings` table.  Images and specs
// are stored as JSON documents.
type ListingRepo struct{ q DBTX }

const listingColumns = `id, user_id, title, description, category, price_per_day, fair_value_price,
	location, zip_code, availability, ` + "`condition`" + `, is_verified, is_emergency, is_weird,
	is_barter_enabled, is_delivery_available, images, specs, co2_saved_per_rental, view_count,
	is_flagged, flag_reason, created_at, updated_at`

// Search limits.
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

func scanListing(row rowScanner) (model.Listing, error) {
	var l model.Listing
	var desc, zip, flagReason sql.NullString
	var fair decimal.NullDecimal
	var images, specs []byte
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &desc, &l.Category, &l.PricePerDay, &fair,
		&l.Location, &zip, &l.Availability, &l.Condition, &l.IsVerified, &l.IsEmergency, &l.IsWeird,
		&l.IsBarterEnabled, &l.IsDeliveryAvailable, &images, &specs, &l.CO2SavedPerRental, &l.ViewCount,
		&l.IsFlagged, &flagReason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	l.Description, l.ZipCode, l.FlagReason = nullStr(desc), nullStr(zip), nullStr(flagReason)
	if fair.Valid {
		d := fair.Decimal
		l.FairValuePrice = &d
	}
	l.Images = []string{}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &l.Images)
	}
	l.Specs = map[string]string{}
	if len(specs) > 0 {
		_ = json.Unmarshal(specs, &l.Specs)
	}
	return l, nil
}

func queryListings(ctx context.Context, q DBTX, query string, args ...any) ([]model.Listing, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func encodeJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Create inserts a listing and fills in the generated ID and timestamps.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Specs == nil {
		l.Specs = map[string]string{}
	}
	images, err := encodeJSON(l.Images)
	if err != nil {
		return err
	}
	specs, err := encodeJSON(l.Specs)
	if err != nil {
		return err
	}
	var fair any
	if l.FairValuePrice != nil {
		fair = *l.FairValuePrice
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO listings (user_id, title, description, category, price_per_day, fair_value_price,
			location, zip_code, availability, `+"`condition`"+`, is_verified, is_emergency, is_weird,
			is_barter_enabled, is_delivery_available, images, specs, co2_saved_per_rental)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.UserID, l.Title, l.Description, l.Category, l.PricePerDay, fair,
		l.Location, l.ZipCode, l.Availability, l.Condition, l.IsVerified, l.IsEmergency, l.IsWeird,
		l.IsBarterEnabled, l.IsDeliveryAvailable, images, specs, l.CO2SavedPerRental)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	l.ID = uint64(id)
	l.CreatedAt, l.UpdatedAt = now, now
	return nil
}

// GetByID fetches a listing regardless of availability.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := scanListing(r.q.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id=? LIMIT 1", id))
	return l, notFound(err)
}

// Search returns available listings matching f, newest first.
func (r *ListingRepo) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	where := []string{"availability = 'available'"}
	args := []any{}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.ZipCode != "" {
		where = append(where, "zip_code = ?")
		args = append(args, f.ZipCode)
	}
	if f.IsEmergency != nil {
		where = append(where, "is_emergency = ?")
		args = append(args, *f.IsEmergency)
	}
	if f.IsWeird != nil {
		where = append(where, "is_weird = ?")
		args = append(args, *f.IsWeird)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+escapeLike(q)+"%")
	}
	args = append(args, clampLimit(f.Limit, DefaultSearchLimit, MaxSearchLimit))
	return queryListings(ctx, r.q,
		"SELECT "+listingColumns+" FROM listings WHERE "+strings.Join(where, " AND ")+
			" ORDER BY created_at DESC, id DESC LIMIT ?", args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListByOwner returns every listing of an owner, newest first.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
	return queryListings(ctx, r.q,
		"SELECT "+listingColumns+" FROM listings WHERE user_id=? ORDER BY created_at DESC, id DESC", ownerID)
}

// List returns all listings for the admin panel.
func (r *ListingRepo) List(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	return queryListings(ctx, r.q,
		"SELECT "+listingColumns+" FROM listings ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		clampLimit(limit, 50, 500), max(offset, 0))
}

// ListFlagged returns listings awaiting moderation.
func (r *ListingRepo) ListFlagged(ctx context.Context) ([]model.Listing, error) {
	return queryListings(ctx, r.q,
		"SELECT "+listingColumns+" FROM listings WHERE is_flagged=1 ORDER BY updated_at DESC, id DESC")
}

// Update applies the non-nil fields of p.
func (r *ListingRepo) Update(ctx context.Context, id uint64, p model.ListingPatch) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.PricePerDay != nil {
		add("price_per_day", *p.PricePerDay)
	}
	if p.FairValuePrice != nil {
		add("fair_value_price", *p.FairValuePrice)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.ZipCode != nil {
		add("zip_code", *p.ZipCode)
	}
	if p.Availability != nil {
		add("availability", *p.Availability)
	}
	if p.Condition != nil {
		add("`condition`", *p.Condition)
	}
	if p.IsEmergency != nil {
		add("is_emergency", *p.IsEmergency)
	}
	if p.IsWeird != nil {
		add("is_weird", *p.IsWeird)
	}
	if p.IsBarterEnabled != nil {
		add("is_barter_enabled", *p.IsBarterEnabled)
	}
	if p.IsDeliveryAvailable != nil {
		add("is_delivery_available", *p.IsDeliveryAvailable)
	}
	if p.Images != nil {
		b, err := encodeJSON(p.Images)
		if err != nil {
			return err
		}
		add("images", b)
	}
	if p.Specs != nil {
		b, err := encodeJSON(p.Specs)
		if err != nil {
			return err
		}
		add("specs", b)
	}
	if p.CO2SavedPerRental != nil {
		add("co2_saved_per_rental", *p.CO2SavedPerRental)
	}
	if p.IsVerified != nil {
		add("is_verified", *p.IsVerified)
	}
	if p.IsFlagged != nil {
		add("is_flagged", *p.IsFlagged)
	}
	if p.ClearFlagReason {
		sets = append(sets, "flag_reason=NULL")
	} else if p.FlagReason != nil {
		add("flag_reason", *p.FlagReason)
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.q.ExecContext(ctx, "UPDATE listings SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a listing.  A listing with rental history is still
// referenced by rentals and yields ErrConflict.
func (r *ListingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM listings WHERE id=?", id)
	if isForeignKeyViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// TransitionAvailability is a compare-and-set on listings.availability.
func (r *ListingRepo) TransitionAvailability(ctx context.Context, id uint64, from, to model.Availability) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE listings SET availability=? WHERE id=? AND availability=?", to, id, from)
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

// IncrementViews bumps the view counter.
func (r *ListingRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.q.ExecContext(ctx, "UPDATE listings SET view_count = view_count + 1 WHERE id=?", id)
	return err
}

// Count returns the number of listings.
func (r *ListingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&n)
	return n, err
}
