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

type lineItemRecord struct {
	SubID       int64  `json:"sub_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Price       string `json:"price"`
}

type invoiceRecord struct {
	ID       string           `json:"id"`
	UserID   int64            `json:"user_id"`
	IssuedAt string           `json:"issued_at"`
	PayTill  string           `json:"pay_till"`
	Items    []lineItemRecord `json:"items"`
	Paid     bool             `json:"paid"`
}

// InvoiceRepository persists invoices under invoice:<id> keys
type InvoiceRepository struct {
	store *Store
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(store *Store) *InvoiceRepository {
	return &InvoiceRepository{store: store}
}

func invoiceKey(id string) string {
	return invoiceKeyPrefix + id
}

// Get retrieves an invoice by id
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*models.Invoice, error) {
	data, err := r.store.client.Get(ctx, invoiceKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFound("invoice", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}

	var rec invoiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", id, err)
	}
	return invoiceFromRecord(&rec)
}

// List returns all stored invoices
func (r *InvoiceRepository) List(ctx context.Context) ([]*models.Invoice, error) {
	keys, err := r.store.scanKeys(ctx, invoiceKeyPrefix)
	if err != nil {
		return nil, err
	}

	invoices := make([]*models.Invoice, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		var rec invoiceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		invoice, err := invoiceFromRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// ListByUser returns all invoices issued to a user
func (r *InvoiceRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Invoice, error) {
	invoices, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := invoices[:0]
	for _, inv := range invoices {
		if inv.UserID == userID {
			matched = append(matched, inv)
		}
	}
	return matched, nil
}

// ListUnpaid returns all invoices that have not been settled yet
func (r *InvoiceRepository) ListUnpaid(ctx context.Context) ([]*models.Invoice, error) {
	invoices, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	unpaid := invoices[:0]
	for _, inv := range invoices {
		if !inv.Paid {
			unpaid = append(unpaid, inv)
		}
	}
	return unpaid, nil
}

// Save persists an invoice, creating or overwriting it
func (r *InvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	rec := invoiceToRecord(invoice)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode invoice %s: %w", invoice.ID, err)
	}
	// KeepTTL preserves a housekeeping expiry on paid-flag updates
	if err := r.store.client.Set(ctx, invoiceKey(invoice.ID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("save invoice %s: %w", invoice.ID, err)
	}
	return nil
}

// Expire schedules the invoice record for deletion after ttl
func (r *InvoiceRepository) Expire(ctx context.Context, id string, ttl time.Duration) error {
	if err := r.store.client.Expire(ctx, invoiceKey(id), ttl).Err(); err != nil {
		return fmt.Errorf("expire invoice %s: %w", id, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the record and whether an expiry is set
func (r *InvoiceRepository) TTL(ctx context.Context, id string) (time.Duration, bool, error) {
	return r.store.ttlOf(ctx, invoiceKey(id))
}

func invoiceToRecord(invoice *models.Invoice) *invoiceRecord {
	rec := &invoiceRecord{
		ID:       invoice.ID,
		UserID:   invoice.UserID,
		IssuedAt: formatDate(invoice.IssuedAt),
		PayTill:  formatDate(invoice.PayTill),
		Paid:     invoice.Paid,
	}
	for _, item := range invoice.Items {
		rec.Items = append(rec.Items, lineItemRecord{
			SubID:       item.SubID,
			PeriodStart: formatDate(item.PeriodStart),
			PeriodEnd:   formatDate(item.PeriodEnd),
			Price:       item.Price.String(),
		})
	}
	return rec
}

func invoiceFromRecord(rec *invoiceRecord) (*models.Invoice, error) {
	issuedAt, err := parseDate(rec.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid issued_at: %w", err)
	}
	payTill, err := parseDate(rec.PayTill)
	if err != nil {
		return nil, fmt.Errorf("invalid pay_till: %w", err)
	}

	invoice := &models.Invoice{
		ID:       rec.ID,
		UserID:   rec.UserID,
		IssuedAt: issuedAt,
		PayTill:  payTill,
		Paid:     rec.Paid,
	}
	for _, item := range rec.Items {
		start, err := parseDate(item.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("invalid period_start: %w", err)
		}
		end, err := parseDate(item.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid period_end: %w", err)
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", item.Price, err)
		}
		invoice.Items = append(invoice.Items, models.LineItem{
			SubID:       item.SubID,
			PeriodStart: start,
			PeriodEnd:   end,
			Price:       price,
		})
	}
	return invoice, nil
}
