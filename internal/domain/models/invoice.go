package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PayTillDays is the number of days a user has to settle a new invoice
const PayTillDays = 2

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// LineItem is one subscription's charge within an invoice
type LineItem struct {
	SubID       int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	Price       decimal.Decimal
}

// Invoice is an immutable-once-created billing record. Only Paid may change
// after creation, and only from false to true.
type Invoice struct {
	ID       string
	UserID   int64
	IssuedAt time.Time
	PayTill  time.Time
	Items    []LineItem
	Paid     bool
}

// TotalPrice sums the line item prices. It is always computed, never stored.
func (i *Invoice) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.Price)
	}
	return total
}

// HasSubscription reports whether any line item references the subscription
func (i *Invoice) HasSubscription(subID int64) bool {
	for _, item := range i.Items {
		if item.SubID == subID {
			return true
		}
	}
	return false
}

// RandomInvoiceID generates an 8-character uppercase alphanumeric id.
// Uniqueness is enforced by the caller, which regenerates on collision.
func RandomInvoiceID() string {
	return randomID(8)
}

func randomID(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // crypto/rand never fails on supported platforms
		}
		b[i] = idAlphabet[n.Int64()]
	}
	return string(b)
}
