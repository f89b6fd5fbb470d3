package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	apperrors "github.com/submgr/billing/pkg/errors"
)

// Engine owns payday and pricing computation for subscriptions. Reading a
// payday that lies in the past clamps it forward to today and persists the
// clamp immediately, so stale billing dates catch up on first use.
type Engine struct {
	subs      ports.SubscriptionRepository
	users     ports.UserRepository
	converter ports.CurrencyConverter
	logger    ports.Logger
}

// NewEngine creates a new billing engine
func NewEngine(
	subs ports.SubscriptionRepository,
	users ports.UserRepository,
	converter ports.CurrencyConverter,
	logger ports.Logger,
) *Engine {
	return &Engine{
		subs:      subs,
		users:     users,
		converter: converter,
		logger:    logger,
	}
}

// Payday returns the date the next billable period starts for a subscription.
// Individual subscriptions bill per member, so userID is required for them;
// group subscriptions use the shared next invoice date and ignore userID.
func (e *Engine) Payday(ctx context.Context, sub *models.Subscription, userID int64, today time.Time) (time.Time, error) {
	if sub.Type == models.TypeIndividual {
		return e.individualPayday(ctx, sub, userID, today)
	}
	return e.groupPayday(ctx, sub, today)
}

func (e *Engine) individualPayday(ctx context.Context, sub *models.Subscription, userID int64, today time.Time) (time.Time, error) {
	if userID == 0 {
		return time.Time{}, apperrors.NewInvalidArgument("user_id", "required for individual subscriptions")
	}

	user, err := e.users.Get(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get user %d: %w", userID, err)
	}

	billed, ok := user.PeriodFor(sub.ID)
	if !ok {
		return time.Time{}, apperrors.NewNotFound("billing period", fmt.Sprintf("user %d sub %d", userID, sub.ID))
	}

	if billed.Before(today) {
		user.SetPeriod(sub.ID, today)
		if err := e.users.Save(ctx, user); err != nil {
			return time.Time{}, fmt.Errorf("persist clamped billing date: %w", err)
		}
		return today, nil
	}
	return billed, nil
}

func (e *Engine) groupPayday(ctx context.Context, sub *models.Subscription, today time.Time) (time.Time, error) {
	if sub.Billing.NextInvoiceDate == nil {
		return time.Time{}, apperrors.NewInvalidArgument("next_invoice_date", fmt.Sprintf("subscription %d has no billing date yet", sub.ID))
	}

	next := *sub.Billing.NextInvoiceDate
	if next.Before(today) {
		sub.Billing.NextInvoiceDate = &today
		if err := e.subs.Save(ctx, sub); err != nil {
			return time.Time{}, fmt.Errorf("persist clamped billing date: %w", err)
		}
		return today, nil
	}
	return next, nil
}

// ShiftedPayday returns the payday advanced by n billing periods
func (e *Engine) ShiftedPayday(ctx context.Context, sub *models.Subscription, userID int64, today time.Time, n int) (time.Time, error) {
	payday, err := e.Payday(ctx, sub, userID, today)
	if err != nil {
		return time.Time{}, err
	}
	return sub.ShiftDate(payday, n), nil
}

// PurePriceInEUR converts the configured price to EUR without dividing it
// among members
func (e *Engine) PurePriceInEUR(ctx context.Context, sub *models.Subscription) (decimal.Decimal, error) {
	price, err := e.converter.ToEUR(ctx, sub.Billing.Price, sub.Billing.Currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert price of subscription %d: %w", sub.ID, err)
	}
	return price, nil
}

// PriceInEUR is the per-member share at the current member count. Zero
// members yields the undivided price.
func (e *Engine) PriceInEUR(ctx context.Context, sub *models.Subscription) (decimal.Decimal, error) {
	pure, err := e.PurePriceInEUR(ctx, sub)
	if err != nil {
		return decimal.Zero, err
	}
	if len(sub.Billing.Members) == 0 {
		return pure, nil
	}
	return pure.Div(decimal.NewFromInt(int64(len(sub.Billing.Members)))), nil
}

// PriceForMembers is the per-member share at a hypothetical member count,
// used to preview the price after a join or leave
func (e *Engine) PriceForMembers(ctx context.Context, sub *models.Subscription, members int) (decimal.Decimal, error) {
	pure, err := e.PurePriceInEUR(ctx, sub)
	if err != nil {
		return decimal.Zero, err
	}
	if members <= 0 {
		return pure, nil
	}
	return pure.Div(decimal.NewFromInt(int64(members))), nil
}
