// Package lognotifier is a Notifier implementation that writes notification
// events to the structured log. It stands in wherever a chat or mail delivery
// channel is not wired up.
package lognotifier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
)

// Notifier logs every notification event instead of delivering it
type Notifier struct {
	logger ports.Logger
}

// New creates a logging notifier
func New(logger ports.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// SendReminder logs a payment reminder event
func (n *Notifier) SendReminder(ctx context.Context, invoice *models.Invoice, state models.ReminderState) error {
	n.logger.Info("payment reminder",
		ports.String("invoice_id", invoice.ID),
		ports.Int64("user_id", invoice.UserID),
		ports.String("state", string(state)),
		ports.String("total", invoice.TotalPrice().String()),
		ports.Date("pay_till", invoice.PayTill))
	return nil
}

// NotifyMemberJoined logs a price change after a member joined
func (n *Notifier) NotifyMemberJoined(ctx context.Context, sub *models.Subscription, newMemberID int64, oldPrice, newPrice decimal.Decimal) error {
	n.logger.Info("member joined",
		ports.Int64("sub_id", sub.ID),
		ports.String("sub_name", sub.Name),
		ports.Int64("new_member_id", newMemberID),
		ports.String("old_price", oldPrice.String()),
		ports.String("new_price", newPrice.String()))
	return nil
}

// NotifyMemberLeft logs a price change after a member left
func (n *Notifier) NotifyMemberLeft(ctx context.Context, sub *models.Subscription, leftMemberID int64, oldPrice, newPrice decimal.Decimal) error {
	n.logger.Info("member left",
		ports.Int64("sub_id", sub.ID),
		ports.String("sub_name", sub.Name),
		ports.Int64("left_member_id", leftMemberID),
		ports.String("old_price", oldPrice.String()),
		ports.String("new_price", newPrice.String()))
	return nil
}
