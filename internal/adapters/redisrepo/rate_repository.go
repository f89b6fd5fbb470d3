package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/submgr/billing/internal/domain/models"
	apperrors "github.com/submgr/billing/pkg/errors"
)

type rateRecord struct {
	Currency  string `json:"currency"`
	Rate      string `json:"rate"`
	FetchedAt string `json:"fetched_at"`
}

// RateRepository persists cached exchange rates under rate:<currency> keys
type RateRepository struct {
	store *Store
}

// NewRateRepository creates a new rate repository
func NewRateRepository(store *Store) *RateRepository {
	return &RateRepository{store: store}
}

func rateKey(currency models.Currency) string {
	return rateKeyPrefix + string(currency)
}

// Get retrieves the cached rate for a currency
func (r *RateRepository) Get(ctx context.Context, currency models.Currency) (*models.ExchangeRate, error) {
	data, err := r.store.client.Get(ctx, rateKey(currency)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFound("exchange rate", string(currency))
	}
	if err != nil {
		return nil, fmt.Errorf("get rate %s: %w", currency, err)
	}

	var rec rateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode rate %s: %w", currency, err)
	}

	cur, err := models.ParseCurrency(rec.Currency)
	if err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(rec.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rec.Rate, err)
	}
	fetchedAt, err := time.Parse(time.RFC3339, rec.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid fetched_at: %w", err)
	}

	return &models.ExchangeRate{
		Currency:  cur,
		Rate:      rate,
		FetchedAt: fetchedAt,
	}, nil
}

// Save persists a rate, overwriting the previous one for the currency
func (r *RateRepository) Save(ctx context.Context, rate *models.ExchangeRate) error {
	rec := rateRecord{
		Currency:  string(rate.Currency),
		Rate:      rate.Rate.String(),
		FetchedAt: rate.FetchedAt.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode rate %s: %w", rate.Currency, err)
	}
	if err := r.store.client.Set(ctx, rateKey(rate.Currency), data, 0).Err(); err != nil {
		return fmt.Errorf("save rate %s: %w", rate.Currency, err)
	}
	return nil
}
