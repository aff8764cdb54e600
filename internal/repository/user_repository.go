package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// UserRepo reads and writes the `users` table.
type UserRepo struct{ q DBTX }

const userColumns = `id, open_id, email, name, display_name, bio, avatar_url, location, zip_code, phone,
	role, is_banned, ban_reason, subscription_tier, subscription_status, subscription_id,
	stripe_customer_id, token_balance, accessibility_mode, last_signed_in, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var email, name, display, bio, avatar, loc, zip, phone sql.NullString
	var banReason, subID, customerID sql.NullString
	err := row.Scan(&u.ID, &u.OpenID, &email, &name, &display, &bio, &avatar, &loc, &zip, &phone,
		&u.Role, &u.IsBanned, &banReason, &u.SubscriptionTier, &u.SubscriptionStatus, &subID,
		&customerID, &u.TokenBalance, &u.AccessibilityMode, &u.LastSignedIn, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Email, u.Name, u.DisplayName = nullStr(email), nullStr(name), nullStr(display)
	u.Bio, u.AvatarURL, u.Location = nullStr(bio), nullStr(avatar), nullStr(loc)
	u.ZipCode, u.Phone, u.BanReason = nullStr(zip), nullStr(phone), nullStr(banReason)
	u.SubscriptionID, u.StripeCustomerID = nullStr(subID), nullStr(customerID)
	return u, nil
}

// Create inserts a user and fills in the generated ID.  The token balance
// is always inserted as zero; callers credit it through the ledger.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (open_id, email, name, display_name, role, subscription_tier, subscription_status,
			token_balance, accessibility_mode, last_signed_in) VALUES (?,?,?,?,?,?,?,0,?,?)`,
		u.OpenID, u.Email, u.Name, u.DisplayName, u.Role, u.SubscriptionTier, u.SubscriptionStatus,
		u.AccessibilityMode, now)
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
	u.ID = uint64(id)
	u.TokenBalance = 0
	u.LastSignedIn, u.CreatedAt, u.UpdatedAt = now, now, now
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// GetByOpenID fetches a user by the session provider's identifier.
func (r *UserRepo) GetByOpenID(ctx context.Context, openID string) (model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE open_id=? LIMIT 1", openID))
	return u, notFound(err)
}

// UpdateLogin refreshes identity fields and the last sign-in time.  Nil
// email or name keep the stored value.
func (r *UserRepo) UpdateLogin(ctx context.Context, id uint64, email, name *string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email=COALESCE(?, email), name=COALESCE(?, name), last_signed_in=? WHERE id=?`,
		email, name, at, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateProfile applies the non-nil fields of p.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.DisplayName != nil {
		add("display_name", *p.DisplayName)
	}
	if p.Bio != nil {
		add("bio", *p.Bio)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.ZipCode != nil {
		add("zip_code", *p.ZipCode)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.AccessibilityMode != nil {
		add("accessibility_mode", *p.AccessibilityMode)
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.q.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetRole changes the user's role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetBan sets or clears the ban flag.  Unbanning clears the reason.
func (r *UserRepo) SetBan(ctx context.Context, id uint64, banned bool, reason *string) error {
	if !banned {
		reason = nil
	}
	res, err := r.q.ExecContext(ctx, "UPDATE users SET is_banned=?, ban_reason=? WHERE id=?", banned, reason, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetSubscription mirrors the processor's subscription state.  A nil
// SubscriptionID keeps the stored one.
func (r *UserRepo) SetSubscription(ctx context.Context, id uint64, s model.SubscriptionUpdate) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET subscription_id=COALESCE(?, subscription_id), subscription_tier=?, subscription_status=? WHERE id=?`,
		s.SubscriptionID, s.Tier, s.Status, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetStripeCustomer stores the processor customer id.
func (r *UserRepo) SetStripeCustomer(ctx context.Context, id uint64, customerID string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET stripe_customer_id=? WHERE id=?", customerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// AdjustTokenBalance applies delta with a guarded increment so concurrent
// earns and spends never lose an update.
func (r *UserRepo) AdjustTokenBalance(ctx context.Context, id uint64, delta int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance + ? WHERE id=? AND token_balance + ? >= 0",
		delta, id, delta)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := r.q.QueryRowContext(ctx, "SELECT token_balance FROM users WHERE id=?", id).Scan(&balance); err != nil {
		return 0, notFound(err)
	}
	if n == 0 {
		return balance, ErrInsufficientBalance
	}
	return balance, nil
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		clampLimit(limit, 50, 500), max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
