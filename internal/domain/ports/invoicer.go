package ports

import (
	"context"
	"time"
)

// InvoiceIssuer issues an immediate single-subscription invoice outside the
// daily cycle. Used when a user joins an individual-type subscription.
type InvoiceIssuer interface {
	InvoiceMemberNow(ctx context.Context, subID, userID int64, today time.Time) error
}
