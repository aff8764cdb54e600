package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

func TestProfileUpdateAndPublicView(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewProfileService(st)
	u := newUser(t, st, "u", model.RoleUser)

	mode := model.AccessibilityDyslexic
	got, err := svc.Update(ctx, u, model.ProfileUpdate{DisplayName: ptr("  Robin "), ZipCode: ptr("97201"), AccessibilityMode: &mode})
	require.NoError(t, err)
	assert.Equal(t, "Robin", *got.DisplayName)
	assert.Equal(t, model.AccessibilityDyslexic, got.AccessibilityMode)

	bad := model.AccessibilityMode("sparkles")
	_, err = svc.Update(ctx, u, model.ProfileUpdate{AccessibilityMode: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, u, model.ProfileUpdate{Bio: ptr(strings.Repeat("a", 1001))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	pub, err := svc.Public(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robin", *pub.DisplayName)
	_, err = svc.Public(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Me(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	me, err := svc.Me(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "97201", *me.ZipCode)
}
