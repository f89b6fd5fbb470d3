package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	"github.com/submgr/billing/pkg/observability"
	"github.com/submgr/billing/pkg/timeutil"
)

// Service is the reminder state machine. State is derived from dates on
// every run instead of being persisted, which makes the job idempotent and
// safe to re-run after a crash: each unpaid invoice matches each state on
// exactly one day.
type Service struct {
	invoices ports.InvoiceRepository
	notifier ports.Notifier
	logger   ports.Logger
}

// NewService creates a new reminder service
func NewService(invoices ports.InvoiceRepository, notifier ports.Notifier, logger ports.Logger) *Service {
	return &Service{
		invoices: invoices,
		notifier: notifier,
		logger:   logger,
	}
}

// RunOnce evaluates every unpaid invoice against today's date and sends the
// matching reminder, if any. Delivery failures are isolated per invoice.
func (s *Service) RunOnce(ctx context.Context, today time.Time) error {
	invoices, err := s.invoices.ListUnpaid(ctx)
	if err != nil {
		return fmt.Errorf("list unpaid invoices: %w", err)
	}

	sent := 0
	for _, invoice := range invoices {
		state, ok := StateFor(invoice, today)
		if !ok {
			continue
		}

		if err := s.notifier.SendReminder(ctx, invoice, state); err != nil {
			s.logger.Error("reminder delivery failed",
				ports.String("invoice_id", invoice.ID),
				ports.Int64("user_id", invoice.UserID),
				ports.String("state", string(state)),
				ports.Err(err))
			continue
		}

		observability.IncReminderSent(string(state))
		sent++

		s.logger.Info("reminder sent",
			ports.String("invoice_id", invoice.ID),
			ports.Int64("user_id", invoice.UserID),
			ports.String("state", string(state)))
	}

	s.logger.Info("reminder run completed",
		ports.Date("as_of", today),
		ports.Int("unpaid_invoices", len(invoices)),
		ports.Int("reminders_sent", sent))

	return nil
}

// StateFor maps an invoice's pay-till date onto one of the three single-day
// reminder states. Invoices matching none of the exact-day conditions get no
// reminder that day.
func StateFor(invoice *models.Invoice, today time.Time) (models.ReminderState, bool) {
	switch {
	case timeutil.SameDay(invoice.PayTill, today.AddDate(0, 0, 2)):
		return models.ReminderPreDue, true
	case timeutil.SameDay(invoice.PayTill, today):
		return models.ReminderDue, true
	case timeutil.SameDay(invoice.PayTill, today.AddDate(0, 0, -2)):
		return models.ReminderOverdue, true
	default:
		return "", false
	}
}
