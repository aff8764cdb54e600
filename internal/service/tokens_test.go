package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository/memstore"
)

func TestDebitInsufficientBalanceLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewTokenService(st, nop)
	u := newUser(t, st, "u1", model.RoleUser)

	_, err := svc.Credit(ctx, u.ID, 20, model.TokenPurchase, "starter pack", nil)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, u.ID, 25, "boost listing", nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	bal, err := svc.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), bal)
	hist, err := svc.History(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestDebitRecordsNegativeEntry(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewTokenService(st, nop)
	u := newUser(t, st, "u1", model.RoleUser)

	_, err := svc.Credit(ctx, u.ID, 40, model.TokenBonus, "promo", nil)
	require.NoError(t, err)
	tx, err := svc.Debit(ctx, u.ID, 15, "featured slot", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), tx.Amount)
	assert.Equal(t, model.TokenSpend, tx.Type)

	a, err := svc.Audit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), a.Balance)
	assert.Equal(t, int64(25), a.LedgerSum)
	assert.True(t, a.Consistent)
}

func TestTokenInputValidation(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewTokenService(st, nop)
	u := newUser(t, st, "u1", model.RoleUser)

	_, err := svc.Credit(ctx, u.ID, 10, model.TokenSpend, "x", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Credit(ctx, u.ID, 0, model.TokenEarn, "x", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Debit(ctx, u.ID, 5, "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Credit(ctx, 9999, 10, model.TokenEarn, "x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerMatchesBalanceUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewTokenService(st, nop)
	rng := rand.New(rand.NewSource(42))
	credits := []model.TokenTxType{model.TokenEarn, model.TokenPurchase, model.TokenBonus}

	for round := 0; round < 20; round++ {
		u := newUser(t, st, "ledger-"+string(rune('a'+round)), model.RoleUser)
		var want int64
		for i := 0; i < 50; i++ {
			amount := rng.Int63n(30) + 1
			if rng.Intn(2) == 0 {
				_, err := svc.Credit(ctx, u.ID, amount, credits[rng.Intn(len(credits))], "credit", nil)
				require.NoError(t, err)
				want += amount
				continue
			}
			_, err := svc.Debit(ctx, u.ID, amount, "debit", nil)
			if amount > want {
				require.ErrorIs(t, err, ErrInsufficientBalance)
				continue
			}
			require.NoError(t, err)
			want -= amount
		}
		a, err := svc.Audit(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, a.Consistent)
		assert.Equal(t, want, a.Balance)
		assert.Equal(t, want, a.LedgerSum)
		assert.GreaterOrEqual(t, a.Balance, int64(0))
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewTokenService(st, nop)
	u := newUser(t, st, "racer", model.RoleUser)
	_, err := svc.Credit(ctx, u.ID, 50, model.TokenPurchase, "pack", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(ctx, u.ID, 7, "race", nil)
		}()
	}
	wg.Wait()

	a, err := svc.Audit(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, a.Consistent)
	assert.Equal(t, int64(1), a.Balance)
}
