package ports

import (
	"context"
	"time"

	"github.com/submgr/billing/internal/domain/models"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// Get retrieves a subscription by id, returning a NotFoundError when missing
	Get(ctx context.Context, id int64) (*models.Subscription, error)

	// List returns all subscriptions in unspecified order
	List(ctx context.Context) ([]*models.Subscription, error)

	// ListActive returns all active subscriptions
	ListActive(ctx context.Context) ([]*models.Subscription, error)

	// Save persists a subscription, creating or overwriting it
	Save(ctx context.Context, sub *models.Subscription) error
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// InvoiceRepository defines the interface for invoice persistence.
// Expire and TTL back the TTL-style housekeeping of settled records.
type InvoiceRepository interface {
	Get(ctx context.Context, id string) (*models.Invoice, error)
	List(ctx context.Context) ([]*models.Invoice, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Invoice, error)
	ListUnpaid(ctx context.Context) ([]*models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error

	// Expire schedules the invoice record for deletion after ttl
	Expire(ctx context.Context, id string, ttl time.Duration) error

	// TTL returns the remaining lifetime of the record and whether an expiry
	// has been set at all
	TTL(ctx context.Context, id string) (time.Duration, bool, error)
}

// InviteRepository defines the interface for invite persistence
type InviteRepository interface {
	Get(ctx context.Context, id string) (*models.Invite, error)
	List(ctx context.Context) ([]*models.Invite, error)
	Save(ctx context.Context, invite *models.Invite) error
	Expire(ctx context.Context, id string, ttl time.Duration) error
	TTL(ctx context.Context, id string) (time.Duration, bool, error)
}

// RateRepository defines the interface for the cached exchange rate table
type RateRepository interface {
	Get(ctx context.Context, currency models.Currency) (*models.ExchangeRate, error)
	Save(ctx context.Context, rate *models.ExchangeRate) error
}
