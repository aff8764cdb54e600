// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import "time"

// NotificationQueue is the durable queue notifications are routed to.
const NotificationQueue = "notifications"

// NotificationKind names the domain event behind a notification.
type NotificationKind string

const (
	KindRentalRequested   NotificationKind = "rental.requested"
	KindRentalStatus      NotificationKind = "rental.status_changed"
	KindRentalPaid        NotificationKind = "rental.paid"
	KindBarterOffer       NotificationKind = "barter.offer_received"
	KindBarterStatus      NotificationKind = "barter.status_changed"
	KindSupportTicket     NotificationKind = "support.ticket_created"
	KindSubscriptionState NotificationKind = "subscription.changed"
)

// NotificationEvent is published whenever a user should be told about
// something.  It contains enough information for downstream consumers to
// deliver or log it without querying the primary database.
type NotificationEvent struct {
	Kind      NotificationKind `json:"kind"`
	UserID    uint64           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RelatedID uint64           `json:"related_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
