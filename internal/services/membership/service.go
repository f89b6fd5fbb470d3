package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/domain/ports"
	"github.com/submgr/billing/pkg/timeutil"
)

// leaveBoundaryDays is how close to a group subscription's next invoice date
// a leave is still refused, to avoid billing disputes right at the boundary.
const leaveBoundaryDays = 3

// Rejection reasons returned by Join and Leave. The presentation layer maps
// them onto user-facing messages.
var (
	ErrOperationInFlight     = errors.New("another join/leave operation for this user is still in flight")
	ErrSubscriptionInactive  = errors.New("subscription is not active")
	ErrSubscriptionFull      = errors.New("subscription has no free seats")
	ErrAlreadyMember         = errors.New("user is already a member")
	ErrNotMember             = errors.New("user is not a member")
	ErrUnpaidInvoice         = errors.New("subscription has an unpaid invoice")
	ErrMinDaysNotMet         = errors.New("minimum membership duration not reached")
	ErrTooCloseToInvoiceDate = errors.New("too close to the next invoice date")
)

// ConflictError reports a forbidden-with conflict between the target
// subscription and one the user already belongs to
type ConflictError struct {
	SubID         int64
	ConflictingID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("subscription %d conflicts with subscription %d", e.SubID, e.ConflictingID)
}

// Service implements membership join/leave with price re-balancing
type Service struct {
	subs     ports.SubscriptionRepository
	users    ports.UserRepository
	invoices ports.InvoiceRepository
	pricer   ports.Pricer
	issuer   ports.InvoiceIssuer
	notifier ports.Notifier
	logger   ports.Logger
	locks    *userLocks
}

// NewService creates a new membership service
func NewService(
	subs ports.SubscriptionRepository,
	users ports.UserRepository,
	invoices ports.InvoiceRepository,
	pricer ports.Pricer,
	issuer ports.InvoiceIssuer,
	notifier ports.Notifier,
	logger ports.Logger,
) *Service {
	return &Service{
		subs:     subs,
		users:    users,
		invoices: invoices,
		pricer:   pricer,
		issuer:   issuer,
		notifier: notifier,
		logger:   logger,
		locks:    newUserLocks(),
	}
}

// Join adds a user to a subscription. Group joins notify the other members of
// their changed share; individual joins trigger an immediate invoice.
func (s *Service) Join(ctx context.Context, userID, subID int64, today time.Time) error {
	if !s.locks.tryAcquire(userID) {
		return ErrOperationInFlight
	}
	defer s.locks.release(userID)

	sub, err := s.subs.Get(ctx, subID)
	if err != nil {
		return fmt.Errorf("get subscription %d: %w", subID, err)
	}
	if !sub.IsActive {
		return ErrSubscriptionInactive
	}
	if sub.IsFull() {
		return ErrSubscriptionFull
	}
	if sub.HasMember(userID) {
		return ErrAlreadyMember
	}

	if err := s.checkConflicts(ctx, userID, sub); err != nil {
		return err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	if err := sub.AddMember(userID); err != nil {
		return err
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription %d: %w", subID, err)
	}

	joined := today
	user.SetJoined(subID, &joined)
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user %d: %w", userID, err)
	}

	s.logger.Info("member joined",
		ports.Int64("subscription_id", subID),
		ports.Int64("user_id", userID),
		ports.Int("members", len(sub.Billing.Members)))

	if sub.Type == models.TypeIndividual {
		if err := s.issuer.InvoiceMemberNow(ctx, subID, userID, today); err != nil {
			return fmt.Errorf("invoice new member: %w", err)
		}
		return nil
	}

	s.notifyJoined(ctx, sub, userID)
	return nil
}

// Leave removes a user from a subscription. Unpaid invoices, the minimum
// membership duration, and the pre-invoice boundary all block the leave.
func (s *Service) Leave(ctx context.Context, userID, subID int64, today time.Time) error {
	if !s.locks.tryAcquire(userID) {
		return ErrOperationInFlight
	}
	defer s.locks.release(userID)

	sub, err := s.subs.Get(ctx, subID)
	if err != nil {
		return fmt.Errorf("get subscription %d: %w", subID, err)
	}
	if !sub.IsActive {
		return ErrSubscriptionInactive
	}
	if !sub.HasMember(userID) {
		return ErrNotMember
	}

	unpaid, err := s.hasUnpaidInvoice(ctx, userID, subID)
	if err != nil {
		return err
	}
	if unpaid {
		return ErrUnpaidInvoice
	}

	if sub.Type == models.TypeGroup && sub.Billing.NextInvoiceDate != nil {
		if timeutil.DaysBetween(today, *sub.Billing.NextInvoiceDate) <= leaveBoundaryDays {
			return ErrTooCloseToInvoiceDate
		}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	if sub.Billing.MinDays > 0 {
		if joined, ok := user.JoinedAt(subID); ok {
			if timeutil.DaysBetween(joined, today) < sub.Billing.MinDays {
				return ErrMinDaysNotMet
			}
		}
	}

	sub.RemoveMember(userID)
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription %d: %w", subID, err)
	}

	user.SetJoined(subID, nil)
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user %d: %w", userID, err)
	}

	s.logger.Info("member left",
		ports.Int64("subscription_id", subID),
		ports.Int64("user_id", userID),
		ports.Int("members", len(sub.Billing.Members)))

	if sub.Type == models.TypeGroup {
		s.notifyLeft(ctx, sub, userID)
	}
	return nil
}

// checkConflicts enforces forbidden-with exclusions in both directions: the
// target may forbid a subscription the user holds, and a held subscription
// may forbid the target.
func (s *Service) checkConflicts(ctx context.Context, userID int64, target *models.Subscription) error {
	subs, err := s.subs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active subscriptions: %w", err)
	}

	for _, held := range subs {
		if !held.HasMember(userID) {
			continue
		}
		for _, forbidden := range held.ForbiddenWith {
			if forbidden == target.ID {
				return &ConflictError{SubID: target.ID, ConflictingID: held.ID}
			}
		}
		for _, forbidden := range target.ForbiddenWith {
			if forbidden == held.ID {
				return &ConflictError{SubID: target.ID, ConflictingID: held.ID}
			}
		}
	}
	return nil
}

func (s *Service) hasUnpaidInvoice(ctx context.Context, userID, subID int64) (bool, error) {
	invoices, err := s.invoices.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list invoices of user %d: %w", userID, err)
	}
	for _, inv := range invoices {
		if !inv.Paid && inv.HasSubscription(subID) {
			return true, nil
		}
	}
	return false, nil
}

// notifyJoined tells the other group members their share dropped. Reserve
// subscriptions bill a fixed per-seat price, so no notification is sent.
func (s *Service) notifyJoined(ctx context.Context, sub *models.Subscription, newMemberID int64) {
	if sub.Reserve || len(sub.Billing.Members) <= 1 {
		return
	}

	count := len(sub.Billing.Members)
	oldPrice, err := s.pricer.PriceForMembers(ctx, sub, count-1)
	if err != nil {
		s.logger.Error("price preview failed", ports.Int64("subscription_id", sub.ID), ports.Err(err))
		return
	}
	newPrice, err := s.pricer.PriceForMembers(ctx, sub, count)
	if err != nil {
		s.logger.Error("price preview failed", ports.Int64("subscription_id", sub.ID), ports.Err(err))
		return
	}

	if err := s.notifier.NotifyMemberJoined(ctx, sub, newMemberID, oldPrice, newPrice); err != nil {
		s.logger.Error("join notification failed",
			ports.Int64("subscription_id", sub.ID),
			ports.Int64("user_id", newMemberID),
			ports.Err(err))
	}
}

func (s *Service) notifyLeft(ctx context.Context, sub *models.Subscription, leftMemberID int64) {
	if sub.Reserve || len(sub.Billing.Members) < 1 {
		return
	}

	count := len(sub.Billing.Members)
	oldPrice, err := s.pricer.PriceForMembers(ctx, sub, count+1)
	if err != nil {
		s.logger.Error("price preview failed", ports.Int64("subscription_id", sub.ID), ports.Err(err))
		return
	}
	newPrice, err := s.pricer.PriceForMembers(ctx, sub, count)
	if err != nil {
		s.logger.Error("price preview failed", ports.Int64("subscription_id", sub.ID), ports.Err(err))
		return
	}

	if err := s.notifier.NotifyMemberLeft(ctx, sub, leftMemberID, oldPrice, newPrice); err != nil {
		s.logger.Error("leave notification failed",
			ports.Int64("subscription_id", sub.ID),
			ports.Int64("user_id", leftMemberID),
			ports.Err(err))
	}
}

// CanAccessCredentials reports whether a user may see a subscription's shared
// credentials: they need at least one paid invoice covering the subscription
// and no unpaid invoice past its pay-till date.
func (s *Service) CanAccessCredentials(ctx context.Context, userID, subID int64, today time.Time) (bool, error) {
	invoices, err := s.invoices.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list invoices of user %d: %w", userID, err)
	}

	coversSub := false
	anyPaid := false
	for _, inv := range invoices {
		if inv.HasSubscription(subID) {
			coversSub = true
		}
		if !inv.Paid && inv.PayTill.Before(today) {
			return false, nil
		}
		if inv.Paid {
			anyPaid = true
		}
	}
	return coversSub && anyPaid, nil
}
