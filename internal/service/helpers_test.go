package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/queue"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

var nop = zerolog.Nop()

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) sent() []queue.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.NotificationEvent(nil), n.events...)
}

func (n *recordingNotifier) waitFor(t *testing.T, count int) []queue.NotificationEvent {
	t.Helper()
	require.Eventually(t, func() bool { return len(n.sent()) >= count }, time.Second, 5*time.Millisecond)
	return n.sent()
}

func newUser(t *testing.T, st *memstore.Store, openID string, role model.Role) *model.User {
	t.Helper()
	u := model.User{
		OpenID: openID, Role: role, SubscriptionTier: model.TierFree,
		SubscriptionStatus: model.SubscriptionNone, AccessibilityMode: model.AccessibilityDefault,
	}
	require.NoError(t, st.Users().Create(context.Background(), &u))
	return &u
}

func newListing(t *testing.T, st *memstore.Store, owner *model.User, title, price string, barter bool) model.Listing {
	t.Helper()
	l := model.Listing{
		UserID: owner.ID, Title: title, Category: "tools", PricePerDay: decimal.RequireFromString(price),
		Location: "Portland", Availability: model.AvailabilityAvailable, Condition: model.ConditionGood,
		IsBarterEnabled: barter, CO2SavedPerRental: decimal.Zero,
	}
	require.NoError(t, st.Listings().Create(context.Background(), &l))
	return l
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }
