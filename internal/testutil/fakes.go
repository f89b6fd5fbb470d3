// Package testutil provides in-memory fakes for the repository and
// notification ports. Service tests run billing cycles against them without a
// Redis instance.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	apperrors "github.com/submgr/billing/pkg/errors"
)

// NopLogger discards all log output
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...ports.Field)  {}
func (NopLogger) Error(msg string, fields ...ports.Field) {}
func (NopLogger) Warn(msg string, fields ...ports.Field)  {}
func (NopLogger) Debug(msg string, fields ...ports.Field) {}

// FakeSubscriptionRepository is an in-memory SubscriptionRepository
type FakeSubscriptionRepository struct {
	mu   sync.Mutex
	Subs map[int64]*models.Subscription
}

// NewFakeSubscriptionRepository creates an empty fake
func NewFakeSubscriptionRepository() *FakeSubscriptionRepository {
	return &FakeSubscriptionRepository{Subs: make(map[int64]*models.Subscription)}
}

func (r *FakeSubscriptionRepository) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.Subs[id]
	if !ok {
		return nil, apperrors.NewNotFound("subscription", "")
	}
	copied := *sub
	return &copied, nil
}

func (r *FakeSubscriptionRepository) List(ctx context.Context) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subs []*models.Subscription
	for _, sub := range r.Subs {
		copied := *sub
		subs = append(subs, &copied)
	}
	return subs, nil
}

func (r *FakeSubscriptionRepository) ListActive(ctx context.Context) ([]*models.Subscription, error) {
	subs, _ := r.List(ctx)
	active := subs[:0]
	for _, sub := range subs {
		if sub.IsActive {
			active = append(active, sub)
		}
	}
	return active, nil
}

func (r *FakeSubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sub
	r.Subs[sub.ID] = &copied
	return nil
}

// FakeUserRepository is an in-memory UserRepository
type FakeUserRepository struct {
	mu    sync.Mutex
	Users map[int64]*models.User
}

// NewFakeUserRepository creates an empty fake
func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{Users: make(map[int64]*models.User)}
}

func (r *FakeUserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.Users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", "")
	}
	copied := *user
	return &copied, nil
}

func (r *FakeUserRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []*models.User
	for _, user := range r.Users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *FakeUserRepository) Save(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.Users[user.ID] = &copied
	return nil
}

// FakeInvoiceRepository is an in-memory InvoiceRepository with TTL bookkeeping
type FakeInvoiceRepository struct {
	mu       sync.Mutex
	Invoices map[string]*models.Invoice
	TTLs     map[string]time.Duration
}

// NewFakeInvoiceRepository creates an empty fake
func NewFakeInvoiceRepository() *FakeInvoiceRepository {
	return &FakeInvoiceRepository{
		Invoices: make(map[string]*models.Invoice),
		TTLs:     make(map[string]time.Duration),
	}
}

func (r *FakeInvoiceRepository) Get(ctx context.Context, id string) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.Invoices[id]
	if !ok {
		return nil, apperrors.NewNotFound("invoice", id)
	}
	copied := *inv
	return &copied, nil
}

func (r *FakeInvoiceRepository) List(ctx context.Context) ([]*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var invoices []*models.Invoice
	for _, inv := range r.Invoices {
		copied := *inv
		invoices = append(invoices, &copied)
	}
	return invoices, nil
}

func (r *FakeInvoiceRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Invoice, error) {
	invoices, _ := r.List(ctx)
	matched := invoices[:0]
	for _, inv := range invoices {
		if inv.UserID == userID {
			matched = append(matched, inv)
		}
	}
	return matched, nil
}

func (r *FakeInvoiceRepository) ListUnpaid(ctx context.Context) ([]*models.Invoice, error) {
	invoices, _ := r.List(ctx)
	unpaid := invoices[:0]
	for _, inv := range invoices {
		if !inv.Paid {
			unpaid = append(unpaid, inv)
		}
	}
	return unpaid, nil
}

func (r *FakeInvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invoice
	r.Invoices[invoice.ID] = &copied
	return nil
}

func (r *FakeInvoiceRepository) Expire(ctx context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TTLs[id] = ttl
	return nil
}

func (r *FakeInvoiceRepository) TTL(ctx context.Context, id string) (time.Duration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl, ok := r.TTLs[id]
	return ttl, ok, nil
}

// FakeInviteRepository is an in-memory InviteRepository with TTL bookkeeping
type FakeInviteRepository struct {
	mu      sync.Mutex
	Invites map[string]*models.Invite
	TTLs    map[string]time.Duration
}

// NewFakeInviteRepository creates an empty fake
func NewFakeInviteRepository() *FakeInviteRepository {
	return &FakeInviteRepository{
		Invites: make(map[string]*models.Invite),
		TTLs:    make(map[string]time.Duration),
	}
}

func (r *FakeInviteRepository) Get(ctx context.Context, id string) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite, ok := r.Invites[id]
	if !ok {
		return nil, apperrors.NewNotFound("invite", id)
	}
	copied := *invite
	return &copied, nil
}

func (r *FakeInviteRepository) List(ctx context.Context) ([]*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var invites []*models.Invite
	for _, invite := range r.Invites {
		copied := *invite
		invites = append(invites, &copied)
	}
	return invites, nil
}

func (r *FakeInviteRepository) Save(ctx context.Context, invite *models.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invite
	r.Invites[invite.ID] = &copied
	return nil
}

func (r *FakeInviteRepository) Expire(ctx context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TTLs[id] = ttl
	return nil
}

func (r *FakeInviteRepository) TTL(ctx context.Context, id string) (time.Duration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl, ok := r.TTLs[id]
	return ttl, ok, nil
}

// FakeRateRepository is an in-memory RateRepository
type FakeRateRepository struct {
	mu    sync.Mutex
	Rates map[models.Currency]*models.ExchangeRate
}

// NewFakeRateRepository creates an empty fake
func NewFakeRateRepository() *FakeRateRepository {
	return &FakeRateRepository{Rates: make(map[models.Currency]*models.ExchangeRate)}
}

func (r *FakeRateRepository) Get(ctx context.Context, currency models.Currency) (*models.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate, ok := r.Rates[currency]
	if !ok {
		return nil, apperrors.NewNotFound("exchange rate", string(currency))
	}
	copied := *rate
	return &copied, nil
}

func (r *FakeRateRepository) Save(ctx context.Context, rate *models.ExchangeRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rate
	r.Rates[rate.Currency] = &copied
	return nil
}

// NotifierCall records one notification event
type NotifierCall struct {
	Kind     string // reminder, joined, left
	Invoice  *models.Invoice
	State    models.ReminderState
	Sub      *models.Subscription
	MemberID int64
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
}

// FakeNotifier records notification calls and optionally fails them
type FakeNotifier struct {
	mu    sync.Mutex
	Calls []NotifierCall
	Err   error
}

// NewFakeNotifier creates a notifier that records all calls
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) SendReminder(ctx context.Context, invoice *models.Invoice, state models.ReminderState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Calls = append(n.Calls, NotifierCall{Kind: "reminder", Invoice: invoice, State: state})
	return nil
}

func (n *FakeNotifier) NotifyMemberJoined(ctx context.Context, sub *models.Subscription, newMemberID int64, oldPrice, newPrice decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Calls = append(n.Calls, NotifierCall{Kind: "joined", Sub: sub, MemberID: newMemberID, OldPrice: oldPrice, NewPrice: newPrice})
	return nil
}

func (n *FakeNotifier) NotifyMemberLeft(ctx context.Context, sub *models.Subscription, leftMemberID int64, oldPrice, newPrice decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Calls = append(n.Calls, NotifierCall{Kind: "left", Sub: sub, MemberID: leftMemberID, OldPrice: oldPrice, NewPrice: newPrice})
	return nil
}
