package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/repository"
)

// Fixed token awards.
const (
	SignupBonusTokens  = 100
	ListingAwardTokens = 25
	PaymentAwardTokens = 10
)

// TokenService owns the token ledger.  The cached balance on the user
// row and the ledger entry are always written in one transaction.
type TokenService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewTokenService returns a TokenService.
func NewTokenService(store repository.Store, log zerolog.Logger) *TokenService {
	return &TokenService{store: store, log: log}
}

// Audit compares the cached balance with the ledger sum.
type Audit struct {
	UserID     uint64 `json:"user_id"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	Consistent bool   `json:"consistent"`
}

// applyTokens adjusts the balance and appends the matching entry using
// st, which must already be transactional.
func applyTokens(ctx context.Context, st repository.Store, userID uint64, amount int64,
	typ model.TokenTxType, desc string, relatedID *uint64) (model.TokenTransaction, error) {
	if _, err := st.Users().AdjustTokenBalance(ctx, userID, amount); err != nil {
		return model.TokenTransaction{}, fromRepo(err, "user")
	}
	tx := model.TokenTransaction{UserID: userID, Amount: amount, Type: typ, Description: desc, RelatedID: relatedID}
	if err := st.Ledger().Append(ctx, &tx); err != nil {
		return model.TokenTransaction{}, err
	}
	return tx, nil
}

// Credit adds amount tokens of the given type.  Spend is not a credit type.
func (s *TokenService) Credit(ctx context.Context, userID uint64, amount int64, typ model.TokenTxType,
	desc string, relatedID *uint64) (model.TokenTransaction, error) {
	if amount <= 0 {
		return model.TokenTransaction{}, invalid("amount must be positive")
	}
	if !typ.Valid() || typ == model.TokenSpend {
		return model.TokenTransaction{}, invalid("invalid credit type %q", typ)
	}
	var out model.TokenTransaction
	err := s.store.InTx(ctx, func(st repository.Store) error {
		var err error
		out, err = applyTokens(ctx, st, userID, amount, typ, strings.TrimSpace(desc), relatedID)
		return err
	})
	if err != nil {
		return model.TokenTransaction{}, err
	}
	s.log.Info().Uint64("user_id", userID).Int64("amount", amount).Str("type", string(typ)).Msg("tokens credited")
	return out, nil
}

// Debit spends amount tokens.  It fails with ErrInsufficientBalance and
// leaves both balance and ledger unchanged when the balance is too low.
func (s *TokenService) Debit(ctx context.Context, userID uint64, amount int64, desc string,
	relatedID *uint64) (model.TokenTransaction, error) {
	if amount <= 0 {
		return model.TokenTransaction{}, invalid("amount must be positive")
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return model.TokenTransaction{}, invalid("description is required")
	}
	var out model.TokenTransaction
	err := s.store.InTx(ctx, func(st repository.Store) error {
		var err error
		out, err = applyTokens(ctx, st, userID, -amount, model.TokenSpend, desc, relatedID)
		return err
	})
	if err != nil {
		return model.TokenTransaction{}, err
	}
	s.log.Info().Uint64("user_id", userID).Int64("amount", -amount).Msg("tokens spent")
	return out, nil
}

// Balance returns the cached balance.
func (s *TokenService) Balance(ctx context.Context, userID uint64) (int64, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return 0, fromRepo(err, "user")
	}
	return u.TokenBalance, nil
}

// History returns ledger entries newest first.
func (s *TokenService) History(ctx context.Context, userID uint64, limit int) ([]model.TokenTransaction, error) {
	return s.store.Ledger().ListByUser(ctx, userID, limit)
}

// Audit reads balance and ledger sum in one transaction.
func (s *TokenService) Audit(ctx context.Context, userID uint64) (Audit, error) {
	a := Audit{UserID: userID}
	err := s.store.InTx(ctx, func(st repository.Store) error {
		u, err := st.Users().GetByID(ctx, userID)
		if err != nil {
			return fromRepo(err, "user")
		}
		sum, err := st.Ledger().SumByUser(ctx, userID)
		if err != nil {
			return err
		}
		a.Balance, a.LedgerSum = u.TokenBalance, sum
		return nil
	})
	a.Consistent = err == nil && a.Balance == a.LedgerSum
	if err == nil && !a.Consistent {
		s.log.Error().Uint64("user_id", userID).Int64("balance", a.Balance).Int64("ledger_sum", a.LedgerSum).
			Msg("token balance drifted from ledger")
	}
	return a, err
}
