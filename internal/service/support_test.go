package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

func validTicket() TicketInput {
	return TicketInput{
		Name:    "Dana",
		Email:   "dana@example.com",
		Subject: "Refund question",
		Message: "I was charged twice for the same rental last week.",
	}
}

func TestCreateTicketDefaults(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	n := &recordingNotifier{}
	staff := newUser(t, st, "staff", model.RoleAdmin)
	svc := NewSupportService(st, n, staff.ID, nop)

	anon, err := svc.Create(ctx, nil, validTicket())
	require.NoError(t, err)
	assert.Nil(t, anon.UserID)
	assert.Equal(t, "general", anon.Category)
	assert.Equal(t, model.TicketOpen, anon.Status)
	assert.Equal(t, model.PriorityMedium, anon.Priority)

	u := newUser(t, st, "u", model.RoleUser)
	in := validTicket()
	in.Category = "billing"
	mine, err := svc.Create(ctx, u, in)
	require.NoError(t, err)
	require.NotNil(t, mine.UserID)
	assert.Equal(t, u.ID, *mine.UserID)

	list, err := svc.MyTickets(ctx, u)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	evs := n.waitFor(t, 2)
	assert.Equal(t, queue.KindSupportTicket, evs[0].Kind)
	assert.Equal(t, staff.ID, evs[0].UserID)
}

func TestCreateTicketValidation(t *testing.T) {
	st := memstore.New()
	svc := NewSupportService(st, nil, 0, nop)
	cases := map[string]func(*TicketInput){
		"short name":    func(in *TicketInput) { in.Name = "D" },
		"bad email":     func(in *TicketInput) { in.Email = "dana-at-example" },
		"no tld":        func(in *TicketInput) { in.Email = "dana@localhost" },
		"short subject": func(in *TicketInput) { in.Subject = "Help" },
		"short message": func(in *TicketInput) { in.Message = "too short" },
		"bad category":  func(in *TicketInput) { in.Category = "gossip" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validTicket()
			mutate(&in)
			_, err := svc.Create(context.Background(), nil, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
