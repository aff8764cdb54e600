package model

import "time"

// TicketStatus mirrors support_tickets.status.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// TicketPriority mirrors support_tickets.priority.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TicketCategories lists the accepted support categories.
var TicketCategories = map[string]bool{
	"general": true, "billing": true, "listing": true, "rental": true,
	"safety": true, "bug": true, "other": true,
}

// SupportTicket is a help request, optionally tied to a signed-in user.
type SupportTicket struct {
	ID         uint64         `json:"id"`                    // support_tickets.id
	UserID     *uint64        `json:"user_id,omitempty"`     // support_tickets.user_id
	Name       string         `json:"name"`                  // support_tickets.name
	Email      string         `json:"email"`                 // support_tickets.email
	Subject    string         `json:"subject"`               // support_tickets.subject
	Message    string         `json:"message"`               // support_tickets.message
	Category   string         `json:"category"`              // support_tickets.category
	Status     TicketStatus   `json:"status"`                // support_tickets.status
	Priority   TicketPriority `json:"priority"`              // support_tickets.priority
	AdminNotes *string        `json:"admin_notes,omitempty"` // support_tickets.admin_notes
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"` // support_tickets.resolved_at
	CreatedAt  time.Time      `json:"created_at"`            // support_tickets.created_at
	UpdatedAt  time.Time      `json:"updated_at"`            // support_tickets.updated_at
}

// TicketPatch is an admin triage update.
type TicketPatch struct {
	Status     *TicketStatus
	Priority   *TicketPriority
	AdminNotes *string
	ResolvedAt *time.Time
}
