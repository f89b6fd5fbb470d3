package reminder

import (
	"context"
	"errors"
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

func unpaidInvoice(id string, userID int64, payTill time.Time) *models.Invoice {
	return &models.Invoice{
		ID:      id,
		UserID:  userID,
		PayTill: payTill,
	}
}

func TestStateFor(t *testing.T) {
	today := date(2024, 5, 10)

	tests := []struct {
		name    string
		payTill time.Time
		state   models.ReminderState
		matched bool
	}{
		{"two days ahead", date(2024, 5, 12), models.ReminderPreDue, true},
		{"due today", date(2024, 5, 10), models.ReminderDue, true},
		{"two days past", date(2024, 5, 8), models.ReminderOverdue, true},
		{"one day ahead", date(2024, 5, 11), "", false},
		{"one day past", date(2024, 5, 9), "", false},
		{"long overdue", date(2024, 4, 1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ok := StateFor(unpaidInvoice("X", 1, tt.payTill), today)
			assert.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.state, state)
			}
		})
	}
}

func TestReminderState_AllowsPayment(t *testing.T) {
	assert.True(t, models.ReminderPreDue.AllowsPayment())
	assert.True(t, models.ReminderDue.AllowsPayment())
	assert.False(t, models.ReminderOverdue.AllowsPayment())
}

func TestService_RunOnce_SendsMatchingReminders(t *testing.T) {
	ctx := context.Background()
	today := date(2024, 5, 10)

	invoices := testutil.NewFakeInvoiceRepository()
	require.NoError(t, invoices.Save(ctx, unpaidInvoice("DUE00001", 1, today)))
	require.NoError(t, invoices.Save(ctx, unpaidInvoice("PRE00001", 2, date(2024, 5, 12))))
	require.NoError(t, invoices.Save(ctx, unpaidInvoice("NONE0001", 3, date(2024, 5, 20))))

	paid := unpaidInvoice("PAID0001", 4, today)
	paid.Paid = true
	require.NoError(t, invoices.Save(ctx, paid))

	notifier := testutil.NewFakeNotifier()
	svc := NewService(invoices, notifier, testutil.NopLogger{})

	require.NoError(t, svc.RunOnce(ctx, today))

	require.Len(t, notifier.Calls, 2)
	states := map[string]models.ReminderState{}
	for _, call := range notifier.Calls {
		assert.Equal(t, "reminder", call.Kind)
		states[call.Invoice.ID] = call.State
	}
	assert.Equal(t, models.ReminderDue, states["DUE00001"])
	assert.Equal(t, models.ReminderPreDue, states["PRE00001"])
}

func TestService_RunOnce_DeliveryFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	today := date(2024, 5, 10)

	invoices := testutil.NewFakeInvoiceRepository()
	require.NoError(t, invoices.Save(ctx, unpaidInvoice("DUE00001", 1, today)))

	notifier := testutil.NewFakeNotifier()
	notifier.Err = errors.New("delivery channel down")
	svc := NewService(invoices, notifier, testutil.NopLogger{})

	assert.NoError(t, svc.RunOnce(ctx, today), "delivery failures must not fail the run")
	assert.Empty(t, notifier.Calls)
}
