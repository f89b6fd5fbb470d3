package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/submgr/billing/internal/domain/ports"
)

const (
	paidInvoiceRetention  = 30 * 24 * time.Hour
	staleInvoiceRetention = 24 * time.Hour
	spoiledInviteTTL      = 24 * time.Hour

	// staleOverdueDays is how long past pay-till an unpaid invoice lingers
	// before it is scheduled for deletion
	staleOverdueDays = 30
)

// Service lazily expires settled invoices and spoiled invites. Records get a
// TTL once their terminal state is reached and the storage layer deletes
// them when it elapses.
type Service struct {
	invoices ports.InvoiceRepository
	invites  ports.InviteRepository
	logger   ports.Logger
}

// NewService creates a new housekeeping service
func NewService(invoices ports.InvoiceRepository, invites ports.InviteRepository, logger ports.Logger) *Service {
	return &Service{
		invoices: invoices,
		invites:  invites,
		logger:   logger,
	}
}

// RunOnce walks invoices and invites, attaching expiries to records that
// reached a terminal state and do not carry one yet
func (s *Service) RunOnce(ctx context.Context, today time.Time) error {
	if err := s.expireInvoices(ctx, today); err != nil {
		return err
	}
	return s.expireInvites(ctx, today)
}

func (s *Service) expireInvoices(ctx context.Context, today time.Time) error {
	invoices, err := s.invoices.List(ctx)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	for _, inv := range invoices {
		var ttl time.Duration
		switch {
		case inv.Paid:
			ttl = paidInvoiceRetention
		case inv.PayTill.AddDate(0, 0, staleOverdueDays).Before(today):
			ttl = staleInvoiceRetention
		default:
			continue
		}

		_, hasTTL, err := s.invoices.TTL(ctx, inv.ID)
		if err != nil {
			s.logger.Error("ttl lookup failed", ports.String("invoice_id", inv.ID), ports.Err(err))
			continue
		}
		if hasTTL {
			continue
		}

		if err := s.invoices.Expire(ctx, inv.ID, ttl); err != nil {
			s.logger.Error("invoice expiry failed", ports.String("invoice_id", inv.ID), ports.Err(err))
			continue
		}
		s.logger.Info("invoice scheduled for deletion",
			ports.String("invoice_id", inv.ID),
			ports.Bool("paid", inv.Paid))
	}
	return nil
}

func (s *Service) expireInvites(ctx context.Context, today time.Time) error {
	invites, err := s.invites.List(ctx)
	if err != nil {
		return fmt.Errorf("list invites: %w", err)
	}

	for _, invite := range invites {
		if !invite.Spoiled(today) {
			continue
		}

		_, hasTTL, err := s.invites.TTL(ctx, invite.ID)
		if err != nil {
			s.logger.Error("ttl lookup failed", ports.String("invite_id", invite.ID), ports.Err(err))
			continue
		}
		if hasTTL {
			continue
		}

		if err := s.invites.Expire(ctx, invite.ID, spoiledInviteTTL); err != nil {
			s.logger.Error("invite expiry failed", ports.String("invite_id", invite.ID), ports.Err(err))
			continue
		}
		s.logger.Info("spoiled invite scheduled for deletion", ports.String("invite_id", invite.ID))
	}
	return nil
}
