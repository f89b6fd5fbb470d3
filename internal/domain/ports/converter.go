package ports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/submgr/billing/internal/domain/models"
)

// CurrencyConverter converts amounts into EUR using the cached rate table.
// Conversion of a non-EUR currency with no cached rate returns a NoRateError.
type CurrencyConverter interface {
	ToEUR(ctx context.Context, amount decimal.Decimal, from models.Currency) (decimal.Decimal, error)
}

// RateSource fetches a fresh exchange rate from an external provider
type RateSource interface {
	FetchRate(ctx context.Context, from, to models.Currency) (decimal.Decimal, error)
}
