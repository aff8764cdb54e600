package model

import "github.com/shopspring/decimal"

// ItemDescriptor describes an item for a fair-price estimate.
type ItemDescriptor struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Location    string `json:"location,omitempty"`
}

// PriceEstimate is an advisory daily price.  Estimated is false when the
// static fallback was returned instead of an oracle answer.
type PriceEstimate struct {
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	MinPrice       decimal.Decimal `json:"min_price"`
	MaxPrice       decimal.Decimal `json:"max_price"`
	Confidence     string          `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	CO2SavedKg     decimal.Decimal `json:"co2_saved_kg"`
	Estimated      bool            `json:"estimated"`
}

// WeirdPick is a curated unusual item suggestion.
type WeirdPick struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Emoji       string          `json:"emoji"`
	WeirdScore  int             `json:"weird_score"`
	FunFact     string          `json:"fun_fact"`
	Estimated   bool            `json:"estimated"`
}
