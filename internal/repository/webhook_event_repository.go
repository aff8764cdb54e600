package repository

import "context"

// WebhookEventRepo records processed payment-processor event ids.
type WebhookEventRepo struct{ q DBTX }

// Record inserts the event id with INSERT IGNORE.  When called inside a
// transaction the row lock on the primary key serialises concurrent
// deliveries of the same event.
func (r *WebhookEventRepo) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT IGNORE INTO webhook_events (event_id, event_type) VALUES (?, ?)", eventID, eventType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
