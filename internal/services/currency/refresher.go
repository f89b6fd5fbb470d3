package currency

import (
	"context"
	"time"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	"github.com/submgr/billing/pkg/observability"
)

// Refresher periodically pulls fresh EUR rates for every supported non-EUR
// currency into the cache the converter reads from
type Refresher struct {
	source     ports.RateSource
	rates      ports.RateRepository
	currencies []models.Currency
	logger     ports.Logger
}

// NewRefresher creates a new rate refresher
func NewRefresher(source ports.RateSource, rates ports.RateRepository, currencies []models.Currency, logger ports.Logger) *Refresher {
	return &Refresher{
		source:     source,
		rates:      rates,
		currencies: currencies,
		logger:     logger,
	}
}

// RunOnce refreshes every configured currency. Failures are isolated per
// currency so one provider hiccup doesn't starve the others.
func (r *Refresher) RunOnce(ctx context.Context, now time.Time) error {
	for _, cur := range r.currencies {
		if cur == models.CurrencyEUR {
			continue
		}

		rate, err := r.source.FetchRate(ctx, cur, models.CurrencyEUR)
		if err != nil {
			observability.IncRateRefresh(string(cur), false)
			r.logger.Error("rate fetch failed",
				ports.String("currency", string(cur)),
				ports.Err(err))
			continue
		}

		if err := r.rates.Save(ctx, &models.ExchangeRate{
			Currency:  cur,
			Rate:      rate,
			FetchedAt: now,
		}); err != nil {
			observability.IncRateRefresh(string(cur), false)
			r.logger.Error("rate save failed",
				ports.String("currency", string(cur)),
				ports.Err(err))
			continue
		}

		observability.IncRateRefresh(string(cur), true)
		r.logger.Info("exchange rate refreshed",
			ports.String("currency", string(cur)),
			ports.String("rate", rate.String()))
	}
	return nil
}
