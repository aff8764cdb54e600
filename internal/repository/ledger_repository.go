package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// LedgerRepo appends to and reads the `token_transactions` table.  Rows
// are never updated or deleted.
type LedgerRepo struct{ q DBTX }

// Append inserts a ledger entry.
func (r *LedgerRepo) Append(ctx context.Context, t *model.TokenTransaction) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO token_transactions (user_id, amount, type, description, related_id) VALUES (?,?,?,?,?)",
		t.UserID, t.Amount, t.Type, t.Description, t.RelatedID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt = time.Now().UTC()
	return nil
}

// ListByUser returns a user's entries newest first.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.TokenTransaction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, amount, type, description, related_id, created_at
		FROM token_transactions WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, clampLimit(limit, 100, 500))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TokenTransaction{}
	for rows.Next() {
		var t model.TokenTransaction
		var related sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &related, &t.CreatedAt); err != nil {
			return nil, err
		}
		if related.Valid {
			v := uint64(related.Int64)
			t.RelatedID = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumByUser returns the sum of all ledger amounts for a user.
func (r *LedgerRepo) SumByUser(ctx context.Context, userID uint64) (int64, error) {
	var sum int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM token_transactions WHERE user_id=?", userID).Scan(&sum)
	return sum, err
}
