package ports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/submgr/billing/internal/domain/models"
)

// Notifier is the notification sink exposed to the presentation layer. The
// engine decides when to notify and with what numbers; the implementation owns
// rendering and delivery, including fan-out to individual members.
type Notifier interface {
	// SendReminder delivers one payment reminder for an unpaid invoice
	SendReminder(ctx context.Context, invoice *models.Invoice, state models.ReminderState) error

	// NotifyMemberJoined tells the other members their share changed after a join
	NotifyMemberJoined(ctx context.Context, sub *models.Subscription, newMemberID int64, oldPrice, newPrice decimal.Decimal) error

	// NotifyMemberLeft tells the remaining members their share changed after a leave
	NotifyMemberLeft(ctx context.Context, sub *models.Subscription, leftMemberID int64, oldPrice, newPrice decimal.Decimal) error
}
