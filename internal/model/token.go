package model

import "time"

// TokenTxType classifies a ledger entry.
type TokenTxType string

const (
	TokenPurchase TokenTxType = "purchase"
	TokenEarn     TokenTxType = "earn"
	TokenSpend    TokenTxType = "spend"
	TokenRefund   TokenTxType = "refund"
	TokenBonus    TokenTxType = "bonus"
)

// Valid reports whether t is a known transaction type.
func (t TokenTxType) Valid() bool {
	switch t {
	case TokenPurchase, TokenEarn, TokenSpend, TokenRefund, TokenBonus:
		return true
	}
	return false
}

// TokenTransaction is an immutable ledger entry.  Amount is positive
// for credits and negative for debits.
type TokenTransaction struct {
	ID          uint64      `json:"id"`                   // token_transactions.id
	UserID      uint64      `json:"user_id"`              // token_transactions.user_id
	Amount      int64       `json:"amount"`               // token_transactions.amount
	Type        TokenTxType `json:"type"`                 // token_transactions.type
	Description string      `json:"description"`          // token_transactions.description
	RelatedID   *uint64     `json:"related_id,omitempty"` // token_transactions.related_id
	CreatedAt   time.Time   `json:"created_at"`           // token_transactions.created_at
}
