package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rentable/internal/model"
)

// PriceOracle produces advisory prices.  Implementations may be slow or
// unavailable; PricingService always answers.
type PriceOracle interface {
	EstimatePrice(ctx context.Context, item model.ItemDescriptor) (model.PriceEstimate, error)
	PickWeird(ctx context.Context) (model.WeirdPick, error)
}

const defaultOracleTimeout = 10 * time.Second

// FallbackEstimate is returned when the oracle cannot answer.
func FallbackEstimate() model.PriceEstimate {
	return model.PriceEstimate{
		SuggestedPrice: decimal.NewFromInt(25),
		MinPrice:       decimal.NewFromInt(15),
		MaxPrice:       decimal.NewFromInt(45),
		Confidence:     "low",
		Reasoning:      "Default estimate",
		CO2SavedKg:     decimal.RequireFromString("2.5"),
	}
}

// FallbackWeirdPick is returned when the oracle cannot answer.
func FallbackWeirdPick() model.WeirdPick {
	return model.WeirdPick{
		Name:        "Emotional Support Goat",
		Description: "Certified therapy goat for your next presentation",
		PricePerDay: decimal.NewFromInt(45),
		Emoji:       "🐐",
		WeirdScore:  9,
		FunFact:     "Goats have rectangular pupils",
	}
}

// PricingService wraps a PriceOracle with input checks and fallbacks.
type PricingService struct {
	oracle  PriceOracle
	timeout time.Duration
	log     zerolog.Logger
}

// NewPricingService returns a PricingService.  A nil oracle always
// yields the fallbacks; a zero timeout uses the default.
func NewPricingService(oracle PriceOracle, timeout time.Duration, log zerolog.Logger) *PricingService {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &PricingService{oracle: oracle, timeout: timeout, log: log}
}

// FairPrice estimates a daily price.  The title is required.
func (s *PricingService) FairPrice(ctx context.Context, item model.ItemDescriptor) (model.PriceEstimate, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return model.PriceEstimate{}, invalid("title is required")
	}
	if s.oracle == nil {
		return FallbackEstimate(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	est, err := s.oracle.EstimatePrice(ctx, item)
	if err != nil {
		s.log.Warn().Err(err).Str("title", item.Title).Msg("price oracle failed, using fallback")
		return FallbackEstimate(), nil
	}
	return est, nil
}

// WeirdPick suggests an unusual item.
func (s *PricingService) WeirdPick(ctx context.Context) model.WeirdPick {
	if s.oracle == nil {
		return FallbackWeirdPick()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.oracle.PickWeird(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("weird pick oracle failed, using fallback")
		return FallbackWeirdPick()
	}
	return p
}
