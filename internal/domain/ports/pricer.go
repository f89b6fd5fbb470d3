package ports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/submgr/billing/internal/domain/models"
)

// Pricer computes EUR prices for a subscription at actual or hypothetical
// member counts
type Pricer interface {
	// PurePriceInEUR is the configured price converted to EUR, undivided
	PurePriceInEUR(ctx context.Context, sub *models.Subscription) (decimal.Decimal, error)

	// PriceInEUR is the per-member share at the current member count. An empty
	// membership is treated as a single payer.
	PriceInEUR(ctx context.Context, sub *models.Subscription) (decimal.Decimal, error)

	// PriceForMembers is the per-member share at a hypothetical member count
	PriceForMembers(ctx context.Context, sub *models.Subscription, members int) (decimal.Decimal, error)
}
