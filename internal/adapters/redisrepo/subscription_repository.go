package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/submgr/billing/internal/domain/models"
	apperrors "github.com/submgr/billing/pkg/errors"
)

// subscriptionRecord is the stored JSON shape. Enums and dates are kept as
// strings so the payload stays readable with plain redis-cli.
type subscriptionRecord struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	IsActive        bool    `json:"is_active"`
	Reserve         bool    `json:"reserve"`
	Type            string  `json:"type"`
	Shared          bool    `json:"shared"`
	Credentials     string  `json:"credentials,omitempty"`
	ForbiddenWith   []int64 `json:"forbidden_with,omitempty"`
	Price           string  `json:"price"`
	Currency        string  `json:"currency"`
	Period          string  `json:"period"`
	NextInvoiceDate *string `json:"next_invoice_date,omitempty"`
	TotalSeats      int     `json:"total_seats"`
	Members         []int64 `json:"members,omitempty"`
	MinDays         int     `json:"min_days,omitempty"`
}

// SubscriptionRepository persists subscriptions under sub:<id> keys
type SubscriptionRepository struct {
	store *Store
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(store *Store) *SubscriptionRepository {
	return &SubscriptionRepository{store: store}
}

func subscriptionKey(id int64) string {
	return subKeyPrefix + strconv.FormatInt(id, 10)
}

// Get retrieves a subscription by id
func (r *SubscriptionRepository) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	data, err := r.store.client.Get(ctx, subscriptionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFound("subscription", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}

	var rec subscriptionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode subscription %d: %w", id, err)
	}
	return subscriptionFromRecord(&rec)
}

// List returns all stored subscriptions
func (r *SubscriptionRepository) List(ctx context.Context) ([]*models.Subscription, error) {
	keys, err := r.store.scanKeys(ctx, subKeyPrefix)
	if err != nil {
		return nil, err
	}

	subs := make([]*models.Subscription, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		var rec subscriptionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		sub, err := subscriptionFromRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// ListActive returns all active subscriptions
func (r *SubscriptionRepository) ListActive(ctx context.Context) ([]*models.Subscription, error) {
	subs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	active := subs[:0]
	for _, sub := range subs {
		if sub.IsActive {
			active = append(active, sub)
		}
	}
	return active, nil
}

// Save persists a subscription, creating or overwriting it
func (r *SubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	rec := subscriptionToRecord(sub)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode subscription %d: %w", sub.ID, err)
	}
	if err := r.store.client.Set(ctx, subscriptionKey(sub.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save subscription %d: %w", sub.ID, err)
	}
	return nil
}

func subscriptionToRecord(sub *models.Subscription) *subscriptionRecord {
	return &subscriptionRecord{
		ID:              sub.ID,
		Name:            sub.Name,
		IsActive:        sub.IsActive,
		Reserve:         sub.Reserve,
		Type:            string(sub.Type),
		Shared:          sub.Shared,
		Credentials:     sub.Credentials,
		ForbiddenWith:   sub.ForbiddenWith,
		Price:           sub.Billing.Price.String(),
		Currency:        string(sub.Billing.Currency),
		Period:          string(sub.Billing.Period),
		NextInvoiceDate: formatDatePtr(sub.Billing.NextInvoiceDate),
		TotalSeats:      sub.Billing.TotalSeats,
		Members:         sub.Billing.Members,
		MinDays:         sub.Billing.MinDays,
	}
}

func subscriptionFromRecord(rec *subscriptionRecord) (*models.Subscription, error) {
	subType, err := models.ParseSubscriptionType(rec.Type)
	if err != nil {
		return nil, err
	}
	currency, err := models.ParseCurrency(rec.Currency)
	if err != nil {
		return nil, err
	}
	period, err := models.ParsePeriod(rec.Period)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", rec.Price, err)
	}
	nextInvoice, err := parseDatePtr(rec.NextInvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid next_invoice_date: %w", err)
	}

	return &models.Subscription{
		ID:            rec.ID,
		Name:          rec.Name,
		IsActive:      rec.IsActive,
		Reserve:       rec.Reserve,
		Type:          subType,
		Shared:        rec.Shared,
		Credentials:   rec.Credentials,
		ForbiddenWith: rec.ForbiddenWith,
		Billing: models.Billing{
			Price:           price,
			Currency:        currency,
			Period:          period,
			NextInvoiceDate: nextInvoice,
			TotalSeats:      rec.TotalSeats,
			Members:         rec.Members,
			MinDays:         rec.MinDays,
		},
	}, nil
}
