package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/testutil"
	apperrors "github.com/submgr/billing/pkg/errors"
)

func TestConverter_ToEUR_Identity(t *testing.T) {
	converter := NewConverter(testutil.NewFakeRateRepository(), testutil.NopLogger{})

	amount := decimal.NewFromFloat(12.34)
	got, err := converter.ToEUR(context.Background(), amount, models.CurrencyEUR)
	require.NoError(t, err)
	assert.True(t, got.Equal(amount))
}

func TestConverter_ToEUR_UsesCachedRate(t *testing.T) {
	rates := testutil.NewFakeRateRepository()
	require.NoError(t, rates.Save(context.Background(), &models.ExchangeRate{
		Currency: models.CurrencyTRY,
		Rate:     decimal.NewFromFloat(0.028),
	}))
	converter := NewConverter(rates, testutil.NopLogger{})

	got, err := converter.ToEUR(context.Background(), decimal.NewFromInt(100), models.CurrencyTRY)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromFloat(2.8)), "got %s", got)
}

func TestConverter_ToEUR_NoRate(t *testing.T) {
	converter := NewConverter(testutil.NewFakeRateRepository(), testutil.NopLogger{})

	_, err := converter.ToEUR(context.Background(), decimal.NewFromInt(100), models.CurrencyTRY)
	assert.True(t, apperrors.IsNoRate(err))
}

// fakeRateSource serves canned rates per currency
type fakeRateSource struct {
	rates map[models.Currency]decimal.Decimal
	err   error
}

func (s *fakeRateSource) FetchRate(ctx context.Context, from, to models.Currency) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rates[from], nil
}

func TestRefresher_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	rates := testutil.NewFakeRateRepository()
	source := &fakeRateSource{rates: map[models.Currency]decimal.Decimal{
		models.CurrencyTRY: decimal.NewFromFloat(0.029),
	}}

	refresher := NewRefresher(source, rates, []models.Currency{models.CurrencyEUR, models.CurrencyTRY}, testutil.NopLogger{})
	require.NoError(t, refresher.RunOnce(ctx, now))

	// EUR is skipped, TRY is cached
	_, err := rates.Get(ctx, models.CurrencyEUR)
	assert.True(t, apperrors.IsNotFound(err))

	stored, err := rates.Get(ctx, models.CurrencyTRY)
	require.NoError(t, err)
	assert.True(t, stored.Rate.Equal(decimal.NewFromFloat(0.029)))
	assert.Equal(t, now, stored.FetchedAt)
}

func TestRefresher_RunOnce_FetchFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()

	rates := testutil.NewFakeRateRepository()
	source := &fakeRateSource{err: errors.New("provider unavailable")}

	refresher := NewRefresher(source, rates, []models.Currency{models.CurrencyTRY}, testutil.NopLogger{})
	assert.NoError(t, refresher.RunOnce(ctx, time.Now()))

	_, err := rates.Get(ctx, models.CurrencyTRY)
	assert.True(t, apperrors.IsNotFound(err), "a failed fetch leaves the cache untouched")
}
