package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	apperrors "github.com/submgr/billing/pkg/errors"
	"github.com/submgr/billing/pkg/observability"
)

// paydayKey identifies one payday decision within a scheduler run. userID is
// zero for group subscriptions, which share a single date.
type paydayKey struct {
	subID  int64
	userID int64
}

// Scheduler produces invoices for everyone whose payday has arrived and
// advances billing dates for the next cycle. It is designed to run once per
// day; re-running it the same day creates no additional invoices because
// every advanced date now lies in the future.
type Scheduler struct {
	engine   *Engine
	subs     ports.SubscriptionRepository
	users    ports.UserRepository
	invoices ports.InvoiceRepository
	logger   ports.Logger
}

// NewScheduler creates a new billing scheduler
func NewScheduler(
	engine *Engine,
	subs ports.SubscriptionRepository,
	users ports.UserRepository,
	invoices ports.InvoiceRepository,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		engine:   engine,
		subs:     subs,
		users:    users,
		invoices: invoices,
		logger:   logger,
	}
}

// RunOnce executes one billing cycle as of the given day. Invariant
// violations abort the run; per-user pricing failures are isolated and
// logged.
func (s *Scheduler) RunOnce(ctx context.Context, today time.Time) error {
	subs, err := s.subs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active subscriptions: %w", err)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if err := s.maintainReserves(ctx, subs, today); err != nil {
		return err
	}

	// Paydays are snapshotted during invoice generation so that the
	// advancement pass works from the same pre-advance baseline. Advancing
	// from a re-read date would double-shift.
	snapshot := make(map[paydayKey]time.Time)

	created, err := s.generateInvoices(ctx, subs, users, today, snapshot)
	if err != nil {
		return err
	}

	if err := s.advanceBillingDates(ctx, subs, users, today, snapshot); err != nil {
		return err
	}

	s.logger.Info("billing cycle completed",
		ports.Date("as_of", today),
		ports.Int("subscriptions", len(subs)),
		ports.Int("invoices_created", created))

	return nil
}

// maintainReserves forces full reserve subscriptions onto today's billing
// cycle. Reserve capacity is free until the last seat fills, then billed in
// full.
func (s *Scheduler) maintainReserves(ctx context.Context, subs []*models.Subscription, today time.Time) error {
	for _, sub := range subs {
		if !sub.Reserve {
			continue
		}
		if sub.Type == models.TypeIndividual {
			return apperrors.NewInvariant("subscription %d cannot be individual and reserve at the same time", sub.ID)
		}
		if sub.FreeSlots() > 0 {
			continue
		}

		next := today
		sub.Billing.NextInvoiceDate = &next
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("save reserve subscription %d: %w", sub.ID, err)
		}

		s.logger.Info("reserve subscription became billable",
			ports.Int64("subscription_id", sub.ID),
			ports.Date("next_invoice", today))
	}
	return nil
}

func (s *Scheduler) generateInvoices(ctx context.Context, subs []*models.Subscription, users []*models.User, today time.Time, snapshot map[paydayKey]time.Time) (int, error) {
	created := 0

	for _, user := range users {
		var items []models.LineItem

		for _, sub := range subs {
			if !sub.HasMember(user.ID) {
				continue
			}
			// Group subscriptions without an initialized date are not yet
			// billable.
			if sub.Type != models.TypeIndividual && sub.Billing.NextInvoiceDate == nil {
				continue
			}

			memberID := int64(0)
			if sub.Type == models.TypeIndividual {
				memberID = user.ID
			}

			payday, err := s.engine.Payday(ctx, sub, memberID, today)
			if err != nil {
				s.logger.Error("payday computation failed",
					ports.Int64("subscription_id", sub.ID),
					ports.Int64("user_id", user.ID),
					ports.Err(err))
				continue
			}
			snapshot[paydayKey{subID: sub.ID, userID: memberID}] = payday

			if payday.After(today) {
				continue
			}

			price, err := s.engine.PriceInEUR(ctx, sub)
			if err != nil {
				// A missing exchange rate blocks this price only, not the run.
				s.logger.Error("price computation failed",
					ports.Int64("subscription_id", sub.ID),
					ports.Int64("user_id", user.ID),
					ports.Err(err))
				continue
			}

			items = append(items, models.LineItem{
				SubID:       sub.ID,
				PeriodStart: payday,
				PeriodEnd:   sub.ShiftDate(payday, 1),
				Price:       price,
			})
		}

		if len(items) == 0 {
			continue
		}

		invoice, err := s.createInvoice(ctx, user.ID, today, items)
		if err != nil {
			return created, fmt.Errorf("create invoice for user %d: %w", user.ID, err)
		}
		created++

		s.logger.Info("invoice created",
			ports.String("invoice_id", invoice.ID),
			ports.Int64("user_id", user.ID),
			ports.Int("line_items", len(items)),
			ports.String("total", invoice.TotalPrice().StringFixed(2)))
	}

	return created, nil
}

// advanceBillingDates rolls every due subscription and member over to the
// next period, using the paydays captured before any advancement this run.
func (s *Scheduler) advanceBillingDates(ctx context.Context, subs []*models.Subscription, users []*models.User, today time.Time, snapshot map[paydayKey]time.Time) error {
	for _, sub := range subs {
		if sub.Reserve && sub.FreeSlots() > 0 {
			continue
		}

		switch sub.Type {
		case models.TypeGroup:
			payday, err := s.snapshotPayday(ctx, sub, 0, today, snapshot)
			if err != nil {
				if apperrors.IsInvalidArgument(err) {
					continue // never initialized, nothing to advance
				}
				return err
			}
			if payday.After(today) {
				continue
			}
			next := sub.ShiftDate(payday, 1)
			sub.Billing.NextInvoiceDate = &next
			if err := s.subs.Save(ctx, sub); err != nil {
				return fmt.Errorf("advance subscription %d: %w", sub.ID, err)
			}

		case models.TypeIndividual:
			for _, user := range users {
				if !sub.HasMember(user.ID) {
					continue
				}
				payday, err := s.snapshotPayday(ctx, sub, user.ID, today, snapshot)
				if err != nil {
					s.logger.Error("skipping date advancement",
						ports.Int64("subscription_id", sub.ID),
						ports.Int64("user_id", user.ID),
						ports.Err(err))
					continue
				}
				if payday.After(today) {
					continue
				}
				user.SetPeriod(sub.ID, sub.ShiftDate(payday, 1))
				if err := s.users.Save(ctx, user); err != nil {
					return fmt.Errorf("advance billing date of user %d: %w", user.ID, err)
				}
			}
		}
	}
	return nil
}

// snapshotPayday returns the payday captured during invoice generation, or
// computes it now for subscriptions no member iterated (for example a group
// subscription with an empty member list).
func (s *Scheduler) snapshotPayday(ctx context.Context, sub *models.Subscription, userID int64, today time.Time, snapshot map[paydayKey]time.Time) (time.Time, error) {
	if payday, ok := snapshot[paydayKey{subID: sub.ID, userID: userID}]; ok {
		return payday, nil
	}
	return s.engine.Payday(ctx, sub, userID, today)
}

// InvoiceMemberNow issues a single one-line-item invoice for a member of an
// individual-type subscription, bypassing the daily cycle. It is a no-op if
// the user already holds a paid invoice referencing the subscription.
func (s *Scheduler) InvoiceMemberNow(ctx context.Context, subID, userID int64, today time.Time) error {
	sub, err := s.subs.Get(ctx, subID)
	if err != nil {
		return fmt.Errorf("get subscription %d: %w", subID, err)
	}
	if sub.Type != models.TypeIndividual {
		return apperrors.NewInvariant("subscription %d is not individual", subID)
	}

	existing, err := s.invoices.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list invoices of user %d: %w", userID, err)
	}
	for _, inv := range existing {
		if inv.Paid && inv.HasSubscription(subID) {
			return nil
		}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}
	user.SetPeriod(subID, today)
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user %d: %w", userID, err)
	}

	// Individual subscriptions have a single payer, so the price is not
	// divided among members.
	price, err := s.engine.PurePriceInEUR(ctx, sub)
	if err != nil {
		return err
	}

	invoice, err := s.createInvoice(ctx, userID, today, []models.LineItem{{
		SubID:       subID,
		PeriodStart: today,
		PeriodEnd:   sub.ShiftDate(today, 1),
		Price:       price,
	}})
	if err != nil {
		return err
	}

	s.logger.Info("immediate invoice created",
		ports.String("invoice_id", invoice.ID),
		ports.Int64("user_id", userID),
		ports.Int64("subscription_id", subID))

	return nil
}

// createInvoice persists a new unpaid invoice, regenerating the random id on
// the rare collision.
func (s *Scheduler) createInvoice(ctx context.Context, userID int64, today time.Time, items []models.LineItem) (*models.Invoice, error) {
	id, err := s.newInvoiceID(ctx)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:       id,
		UserID:   userID,
		IssuedAt: today,
		PayTill:  today.AddDate(0, 0, models.PayTillDays),
		Items:    items,
		Paid:     false,
	}

	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("save invoice %s: %w", id, err)
	}

	observability.IncInvoicesCreated()
	return invoice, nil
}

func (s *Scheduler) newInvoiceID(ctx context.Context) (string, error) {
	for {
		id := models.RandomInvoiceID()
		_, err := s.invoices.Get(ctx, id)
		if apperrors.IsNotFound(err) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check invoice id %s: %w", id, err)
		}
	}
}
