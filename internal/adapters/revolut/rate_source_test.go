package revolut

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/testutil"
)

func newTestSource(serverURL string) *RateSource {
	src := NewRateSource(serverURL, 5*time.Second, testutil.NopLogger{})
	// no sleeping between attempts in tests
	src.backoff = zeroBackoff{}
	return src
}

type zeroBackoff struct{}

func (zeroBackoff) NextDelay(attempt int) time.Duration { return 0 }

func TestRateSource_FetchRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TRY", r.URL.Query().Get("fromCurrency"))
		assert.Equal(t, "EUR", r.URL.Query().Get("toCurrency"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rate": {"rate": 0.0282}}`))
	}))
	defer server.Close()

	src := newTestSource(server.URL)
	rate, err := src.FetchRate(context.Background(), models.CurrencyTRY, models.CurrencyEUR)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.0282)), "got %s", rate)
}

func TestRateSource_FetchRate_RetriesTransientFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"rate": {"rate": 0.03}}`))
	}))
	defer server.Close()

	src := newTestSource(server.URL)
	rate, err := src.FetchRate(context.Background(), models.CurrencyTRY, models.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.03)))
}

func TestRateSource_FetchRate_GivesUpAfterAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := newTestSource(server.URL)
	_, err := src.FetchRate(context.Background(), models.CurrencyTRY, models.CurrencyEUR)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestRateSource_FetchRate_NonPositiveRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": {"rate": 0}}`))
	}))
	defer server.Close()

	src := newTestSource(server.URL)
	_, err := src.FetchRate(context.Background(), models.CurrencyTRY, models.CurrencyEUR)
	assert.Error(t, err)
}
