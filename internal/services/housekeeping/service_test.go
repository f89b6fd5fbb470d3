package housekeeping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_RunOnce_PaidInvoiceGetsRetentionTTL(t *testing.T) {
	ctx := context.Background()
	invoices := testutil.NewFakeInvoiceRepository()
	invites := testutil.NewFakeInviteRepository()

	require.NoError(t, invoices.Save(ctx, &models.Invoice{
		ID:      "PAID0001",
		PayTill: date(2024, 5, 5),
		Paid:    true,
	}))

	svc := NewService(invoices, invites, testutil.NopLogger{})
	require.NoError(t, svc.RunOnce(ctx, date(2024, 5, 10)))

	ttl, ok, err := invoices.TTL(ctx, "PAID0001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, paidInvoiceRetention, ttl)
}

func TestService_RunOnce_StaleOverdueInvoice(t *testing.T) {
	ctx := context.Background()
	invoices := testutil.NewFakeInvoiceRepository()
	invites := testutil.NewFakeInviteRepository()

	// unpaid and 31 days past pay-till
	require.NoError(t, invoices.Save(ctx, &models.Invoice{
		ID:      "STALE001",
		PayTill: date(2024, 4, 9),
	}))
	// unpaid but still within the grace window
	require.NoError(t, invoices.Save(ctx, &models.Invoice{
		ID:      "FRESH001",
		PayTill: date(2024, 5, 8),
	}))

	svc := NewService(invoices, invites, testutil.NopLogger{})
	require.NoError(t, svc.RunOnce(ctx, date(2024, 5, 10)))

	ttl, ok, _ := invoices.TTL(ctx, "STALE001")
	require.True(t, ok)
	assert.Equal(t, staleInvoiceRetention, ttl)

	_, ok, _ = invoices.TTL(ctx, "FRESH001")
	assert.False(t, ok, "recent unpaid invoices keep no expiry")
}

func TestService_RunOnce_ExistingTTLNotOverwritten(t *testing.T) {
	ctx := context.Background()
	invoices := testutil.NewFakeInvoiceRepository()
	invites := testutil.NewFakeInviteRepository()

	require.NoError(t, invoices.Save(ctx, &models.Invoice{
		ID:      "PAID0001",
		PayTill: date(2024, 5, 5),
		Paid:    true,
	}))
	require.NoError(t, invoices.Expire(ctx, "PAID0001", time.Hour))

	svc := NewService(invoices, invites, testutil.NopLogger{})
	require.NoError(t, svc.RunOnce(ctx, date(2024, 5, 10)))

	ttl, ok, _ := invoices.TTL(ctx, "PAID0001")
	require.True(t, ok)
	assert.Equal(t, time.Hour, ttl, "an already scheduled expiry stays as is")
}

func TestService_RunOnce_SpoiledInvite(t *testing.T) {
	ctx := context.Background()
	invoices := testutil.NewFakeInvoiceRepository()
	invites := testutil.NewFakeInviteRepository()

	// expired unused three days ago
	require.NoError(t, invites.Save(ctx, &models.Invite{
		ID:        "SPOILED123",
		IssueDate: date(2024, 5, 1),
	}))
	// used invites never spoil
	require.NoError(t, invites.Save(ctx, &models.Invite{
		ID:        "USED123456",
		IssueDate: date(2024, 5, 1),
		Used:      true,
		UsedBy:    100,
	}))
	// still inside its lifetime
	require.NoError(t, invites.Save(ctx, &models.Invite{
		ID:        "FRESH12345",
		IssueDate: date(2024, 5, 9),
	}))

	svc := NewService(invoices, invites, testutil.NopLogger{})
	require.NoError(t, svc.RunOnce(ctx, date(2024, 5, 10)))

	ttl, ok, _ := invites.TTL(ctx, "SPOILED123")
	require.True(t, ok)
	assert.Equal(t, spoiledInviteTTL, ttl)

	_, ok, _ = invites.TTL(ctx, "USED123456")
	assert.False(t, ok)

	_, ok, _ = invites.TTL(ctx, "FRESH12345")
	assert.False(t, ok)
}
