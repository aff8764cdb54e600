package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository"
)

// SupportService files help requests.
type SupportService struct {
	store    repository.Store
	notifier Notifier
	ownerID  uint64
	log      zerolog.Logger
}

// NewSupportService returns a SupportService.  ownerUserID receives a
// notification for each new ticket; zero disables it.
func NewSupportService(store repository.Store, notifier Notifier, ownerUserID uint64, log zerolog.Logger) *SupportService {
	return &SupportService{store: store, notifier: notifier, ownerID: ownerUserID, log: log}
}

// TicketInput is a public support request.
type TicketInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

func validateTicket(in *TicketInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	in.Category = strings.TrimSpace(in.Category)
	switch {
	case utf8.RuneCountInString(in.Name) < 2:
		return invalid("name must be at least 2 characters")
	case !validEmail(in.Email):
		return invalid("a valid email is required")
	case utf8.RuneCountInString(in.Subject) < 5:
		return invalid("subject must be at least 5 characters")
	case utf8.RuneCountInString(in.Message) < 20:
		return invalid("message must be at least 20 characters")
	}
	if in.Category == "" {
		in.Category = "general"
	}
	if !model.TicketCategories[in.Category] {
		return invalid("unknown category %q", in.Category)
	}
	return nil
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}

// Create files a ticket.  actor may be nil for anonymous requests.
func (s *SupportService) Create(ctx context.Context, actor *model.User, in TicketInput) (model.SupportTicket, error) {
	if err := validateTicket(&in); err != nil {
		return model.SupportTicket{}, err
	}
	t := model.SupportTicket{
		Name: in.Name, Email: in.Email, Subject: in.Subject, Message: in.Message, Category: in.Category,
		Status: model.TicketOpen, Priority: model.PriorityMedium,
	}
	if actor != nil && actor.ID != 0 {
		id := actor.ID
		t.UserID = &id
	}
	if err := s.store.Tickets().Create(ctx, &t); err != nil {
		return model.SupportTicket{}, err
	}
	s.log.Info().Uint64("ticket_id", t.ID).Str("category", t.Category).Msg("support ticket created")
	notify(s.notifier, s.log, queue.NotificationEvent{
		Kind: queue.KindSupportTicket, UserID: s.ownerID, RelatedID: t.ID,
		Title: "New support ticket", Message: fmt.Sprintf("[%s] %s", t.Category, t.Subject),
	})
	return t, nil
}

// MyTickets lists tickets the caller filed while signed in.
func (s *SupportService) MyTickets(ctx context.Context, actor *model.User) ([]model.SupportTicket, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.store.Tickets().ListByUser(ctx, actor.ID)
}
