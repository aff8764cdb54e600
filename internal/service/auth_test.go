package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
	"github.com/iliyamo/rentable/internal/repository/memstore"
	"github.com/iliyamo/rentable/internal/utils"
)

const (
	testJWTSecret     = "jwt-secret"
	testSessionSecret = "session-secret"
)

func newAuth(st *memstore.Store) *AuthService {
	return NewAuthService(st, AuthConfig{
		JWTSecret: testJWTSecret, SessionSecret: testSessionSecret,
		AccessTTLMin: 15, RefreshTTLDays: 30, AdminOpenID: "root-open-id",
	}, nop)
}

func sessionToken(t *testing.T, openID, email string) string {
	t.Helper()
	tok, err := utils.NewSessionToken(testSessionSecret, utils.SessionClaims{OpenID: openID, Email: email, Name: "Sam"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestExchangeCreatesUserWithBonusOnce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := newAuth(st)

	sess, err := svc.Exchange(ctx, sessionToken(t, "open-1", "sam@example.com"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, sess.User.Role)
	assert.Equal(t, int64(SignupBonusTokens), sess.User.TokenBalance)
	require.NotNil(t, sess.User.Email)
	assert.Equal(t, "sam@example.com", *sess.User.Email)

	uid, role, err := utils.ParseAccessToken(testJWTSecret, sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, uid)
	assert.Equal(t, "user", role)

	again, err := svc.Exchange(ctx, sessionToken(t, "open-1", "sam@new.example"))
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)
	assert.Equal(t, int64(SignupBonusTokens), again.User.TokenBalance)
	assert.Equal(t, "sam@new.example", *again.User.Email)

	hist, err := st.Ledger().ListByUser(ctx, sess.User.ID, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.TokenBonus, hist[0].Type)
}

func TestExchangeAdminAndRejections(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := newAuth(st)

	sess, err := svc.Exchange(ctx, sessionToken(t, "root-open-id", ""))
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, sess.User.Role)
	assert.Nil(t, sess.User.Email)

	_, err = svc.Exchange(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	forged, err := utils.NewSessionToken("other-secret", utils.SessionClaims{OpenID: "x"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.Exchange(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	banned, err := svc.Exchange(ctx, sessionToken(t, "bad-actor", ""))
	require.NoError(t, err)
	require.NoError(t, st.Users().SetBan(ctx, banned.User.ID, true, ptr("fraud")))
	_, err = svc.Exchange(ctx, sessionToken(t, "bad-actor", ""))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := newAuth(st)
	sess, err := svc.Exchange(ctx, sessionToken(t, "open-1", ""))
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Refresh.Raw, next.Refresh.Raw)
	_, err = svc.Refresh(ctx, sess.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Logout(ctx, nil, next.Refresh.Raw))
	_, err = svc.Refresh(ctx, next.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	third, err := svc.Exchange(ctx, sessionToken(t, "open-1", ""))
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, &third.User, ""))
	_, err = svc.Refresh(ctx, third.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, svc.Logout(ctx, nil, ""), ErrUnauthenticated)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := newAuth(st)
	sess, err := svc.Exchange(ctx, sessionToken(t, "open-2", ""))
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, sess.Refresh.Raw); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrUnauthenticated)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	hash := utils.HashRefreshRaw(sess.Refresh.Raw)
	assert.ErrorIs(t, st.RefreshTokens().RevokeByHash(ctx, hash), repository.ErrNotFound)
	assert.ErrorIs(t, svc.Logout(ctx, nil, sess.Refresh.Raw), ErrUnauthenticated)
}

func TestLogoutChecksTokenOwner(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := newAuth(st)
	victim, err := svc.Exchange(ctx, sessionToken(t, "victim", ""))
	require.NoError(t, err)
	attacker, err := svc.Exchange(ctx, sessionToken(t, "attacker", ""))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Logout(ctx, &attacker.User, victim.Refresh.Raw), ErrForbidden)
	_, err = svc.Refresh(ctx, victim.Refresh.Raw)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, &attacker.User, attacker.Refresh.Raw))
	_, err = svc.Refresh(ctx, attacker.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
