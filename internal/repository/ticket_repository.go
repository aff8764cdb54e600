package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/rentable/internal/model"
)

// TicketRepo persists support tickets.
type TicketRepo struct{ q DBTX }

const ticketColumns = `id, user_id, name, email, subject, message, category, status, priority,
	admin_notes, resolved_at, created_at, updated_at`

func scanTicket(row rowScanner) (model.SupportTicket, error) {
	var t model.SupportTicket
	var userID sql.NullInt64
	var notes sql.NullString
	var resolved sql.NullTime
	err := row.Scan(&t.ID, &userID, &t.Name, &t.Email, &t.Subject, &t.Message, &t.Category,
		&t.Status, &t.Priority, &notes, &resolved, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if userID.Valid {
		v := uint64(userID.Int64)
		t.UserID = &v
	}
	t.AdminNotes, t.ResolvedAt = nullStr(notes), nullTime(resolved)
	return t, nil
}

func (r *TicketRepo) query(ctx context.Context, query string, args ...any) ([]model.SupportTicket, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SupportTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a ticket.
func (r *TicketRepo) Create(ctx context.Context, t *model.SupportTicket) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO support_tickets (user_id, name, email, subject, message, category, status, priority)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.UserID, t.Name, t.Email, t.Subject, t.Message, t.Category, t.Status, t.Priority)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// GetByID fetches a ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.SupportTicket, error) {
	t, err := scanTicket(r.q.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM support_tickets WHERE id=? LIMIT 1", id))
	return t, notFound(err)
}

// List returns tickets newest first, optionally filtered by status.
func (r *TicketRepo) List(ctx context.Context, status *model.TicketStatus) ([]model.SupportTicket, error) {
	if status != nil {
		return r.query(ctx, "SELECT "+ticketColumns+" FROM support_tickets WHERE status=? ORDER BY created_at DESC, id DESC", *status)
	}
	return r.query(ctx, "SELECT "+ticketColumns+" FROM support_tickets ORDER BY created_at DESC, id DESC")
}

// ListByUser returns the tickets filed by a user.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.SupportTicket, error) {
	return r.query(ctx, "SELECT "+ticketColumns+" FROM support_tickets WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
}

// Update applies an admin triage patch.
func (r *TicketRepo) Update(ctx context.Context, id uint64, p model.TicketPatch) error {
	sets := []string{}
	args := []any{}
	if p.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *p.Status)
	}
	if p.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *p.Priority)
	}
	if p.AdminNotes != nil {
		sets = append(sets, "admin_notes=?")
		args = append(args, *p.AdminNotes)
	}
	if p.ResolvedAt != nil {
		sets = append(sets, "resolved_at=?")
		args = append(args, p.ResolvedAt.UTC())
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.q.ExecContext(ctx, "UPDATE support_tickets SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CountByStatus counts tickets in the given status.
func (r *TicketRepo) CountByStatus(ctx context.Context, status model.TicketStatus) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM support_tickets WHERE status=?", status).Scan(&n)
	return n, err
}
