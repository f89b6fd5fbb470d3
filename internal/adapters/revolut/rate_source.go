// Package revolut fetches exchange rates from Revolut's public quote API.
package revolut

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	"github.com/submgr/billing/pkg/resilience"
)

const (
	// DefaultBaseURL is the public quote endpoint
	DefaultBaseURL = "https://www.revolut.com/api/exchange/quote"

	quoteAmount   = 100
	quoteRegion   = "LV"
	fetchAttempts = 3
)

// RateSource implements ports.RateSource against the Revolut quote API
type RateSource struct {
	baseURL string
	client  *http.Client
	backoff resilience.BackoffStrategy
	logger  ports.Logger
}

// NewRateSource creates a rate source with the given base URL and timeout
func NewRateSource(baseURL string, timeout time.Duration, logger ports.Logger) *RateSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RateSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		backoff: resilience.DefaultExponentialBackoff(),
		logger:  logger,
	}
}

type quoteResponse struct {
	Rate struct {
		Rate decimal.Decimal `json:"rate"`
	} `json:"rate"`
}

// FetchRate returns the current conversion rate from one currency to another,
// retrying transient provider failures with backoff
func (s *RateSource) FetchRate(ctx context.Context, from, to models.Currency) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := resilience.Retry(ctx, fetchAttempts, s.backoff, func() error {
		var fetchErr error
		rate, fetchErr = s.fetchOnce(ctx, from, to)
		return fetchErr
	})
	return rate, err
}

func (s *RateSource) fetchOnce(ctx context.Context, from, to models.Currency) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s?amount=%d&country=%s&fromCurrency=%s&isRecipientAmount=false&toCurrency=%s",
		s.baseURL, quoteAmount, quoteRegion, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch quote %s->%s: %w", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch quote %s->%s: unexpected status %d", from, to, resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return decimal.Zero, fmt.Errorf("decode quote %s->%s: %w", from, to, err)
	}

	if quote.Rate.Rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("fetch quote %s->%s: non-positive rate %s", from, to, quote.Rate.Rate)
	}

	s.logger.Debug("quote fetched",
		ports.String("from", string(from)),
		ports.String("to", string(to)),
		ports.String("rate", quote.Rate.Rate.String()))

	return quote.Rate.Rate, nil
}
