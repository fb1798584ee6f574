package profit

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
)

var (
	DefaultMinProfit = decimal.NewFromInt(1)
	DefaultMaxProfit = decimal.NewFromInt(100)
)

// Config bounds the profit a single run can generate. Unset bounds fall
// back to DefaultMinProfit and DefaultMaxProfit.
type Config struct {
	MinProfit decimal.NullDecimal
	MaxProfit decimal.NullDecimal
}

// DefaultConfig returns {MinProfit: 1, MaxProfit: 100}.
func DefaultConfig() Config {
	return NewConfig(DefaultMinProfit, DefaultMaxProfit)
}

func NewConfig(minProfit, maxProfit decimal.Decimal) Config {
	return Config{
		MinProfit: decimal.NewNullDecimal(minProfit),
		MaxProfit: decimal.NewNullDecimal(maxProfit),
	}
}

// Bounds resolves defaults and validates the range.
func (c Config) Bounds() (decimal.Decimal, decimal.Decimal, error) {
	lo, hi := DefaultMinProfit, DefaultMaxProfit
	if c.MinProfit.Valid {
		lo = c.MinProfit.Decimal
	}
	if c.MaxProfit.Valid {
		hi = c.MaxProfit.Decimal
	}
	if lo.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("min profit %s is negative: %w", lo, models.ErrInvalidAmount)
	}
	if lo.GreaterThan(hi) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("min profit %s above max %s: %w", lo, hi, models.ErrInvalidAmount)
	}
	return lo, hi, nil
}
