package currency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	apperrors "github.com/submgr/billing/pkg/errors"
)

// Converter converts amounts into EUR using the cached exchange rate table
type Converter struct {
	rates  ports.RateRepository
	logger ports.Logger
}

// NewConverter creates a new converter
func NewConverter(rates ports.RateRepository, logger ports.Logger) *Converter {
	return &Converter{rates: rates, logger: logger}
}

// ToEUR converts an amount to EUR. EUR amounts pass through unchanged; any
// other currency requires a cached rate.
func (c *Converter) ToEUR(ctx context.Context, amount decimal.Decimal, from models.Currency) (decimal.Decimal, error) {
	if from == models.CurrencyEUR {
		return amount, nil
	}

	rate, err := c.rates.Get(ctx, from)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return decimal.Zero, apperrors.NewNoRate(string(from))
		}
		return decimal.Zero, fmt.Errorf("get rate for %s: %w", from, err)
	}

	return amount.Mul(rate.Rate), nil
}
