package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a cached conversion rate from a currency to EUR
type ExchangeRate struct {
	Currency  Currency
	Rate      decimal.Decimal
	FetchedAt time.Time
}
