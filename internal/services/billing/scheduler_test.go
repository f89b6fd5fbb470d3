package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submgr/billing/internal/domain/models"
	"github.com/submgr/billing/internal/services/currency"
	"github.com/submgr/billing/internal/testutil"
	apperrors "github.com/submgr/billing/pkg/errors"
)

type schedulerFixture struct {
	scheduler *Scheduler
	subs      *testutil.FakeSubscriptionRepository
	users     *testutil.FakeUserRepository
	invoices  *testutil.FakeInvoiceRepository
}

func newSchedulerFixture() *schedulerFixture {
	subs := testutil.NewFakeSubscriptionRepository()
	users := testutil.NewFakeUserRepository()
	invoices := testutil.NewFakeInvoiceRepository()
	rates := testutil.NewFakeRateRepository()
	converter := currency.NewConverter(rates, testutil.NopLogger{})
	engine := NewEngine(subs, users, converter, testutil.NopLogger{})
	return &schedulerFixture{
		scheduler: NewScheduler(engine, subs, users, invoices, testutil.NopLogger{}),
		subs:      subs,
		users:     users,
		invoices:  invoices,
	}
}

func TestScheduler_RunOnce_GroupDue(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(1, &today, 100, 200)
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100, Name: "alice"}))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 200, Name: "bob"}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	// one invoice per member, each for half the price
	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, inv := range all {
		assert.False(t, inv.Paid)
		assert.Equal(t, today, inv.IssuedAt)
		assert.Equal(t, today.AddDate(0, 0, models.PayTillDays), inv.PayTill)
		require.Len(t, inv.Items, 1)
		item := inv.Items[0]
		assert.Equal(t, int64(1), item.SubID)
		assert.Equal(t, today, item.PeriodStart)
		assert.Equal(t, date(2024, 6, 9), item.PeriodEnd)
		assert.True(t, item.Price.Equal(decimal.NewFromInt(15)), "got %s", item.Price)
	}

	// the shared date advanced by one period from the pre-advance payday
	stored, err := f.subs.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored.Billing.NextInvoiceDate)
	assert.Equal(t, date(2024, 6, 9), *stored.Billing.NextInvoiceDate)
}

func TestScheduler_RunOnce_SameDayRerunIsIdempotent(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(1, &today, 100)
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))
	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "second run the same day must not bill again")
}

func TestScheduler_RunOnce_NotDueYet(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)
	next := date(2024, 5, 25)

	require.NoError(t, f.subs.Save(ctx, groupSub(1, &next, 100)))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, _ := f.invoices.List(ctx)
	assert.Empty(t, all)

	stored, _ := f.subs.Get(ctx, 1)
	assert.Equal(t, next, *stored.Billing.NextInvoiceDate, "future dates stay untouched")
}

func TestScheduler_RunOnce_CombinesLineItems(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	require.NoError(t, f.subs.Save(ctx, groupSub(1, &today, 100)))
	sub2 := groupSub(2, &today, 100)
	sub2.Billing.Price = decimal.NewFromInt(12)
	require.NoError(t, f.subs.Save(ctx, sub2))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "one invoice covering both subscriptions")
	assert.Len(t, all[0].Items, 2)
	assert.True(t, all[0].TotalPrice().Equal(decimal.NewFromInt(42)))
}

func TestScheduler_RunOnce_IndividualAdvancesPerMember(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := &models.Subscription{
		ID:       3,
		IsActive: true,
		Type:     models.TypeIndividual,
		Billing: models.Billing{
			Price:    decimal.NewFromInt(10),
			Currency: models.CurrencyEUR,
			Period:   models.PeriodMonthly,
			Members:  []int64{100, 200},
		},
	}
	require.NoError(t, f.subs.Save(ctx, sub))

	due := &models.User{ID: 100}
	due.SetPeriod(3, today)
	require.NoError(t, f.users.Save(ctx, due))

	notDue := &models.User{ID: 200}
	notDue.SetPeriod(3, date(2024, 5, 25))
	require.NoError(t, f.users.Save(ctx, notDue))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(100), all[0].UserID)
	// individual billing does not split the price
	assert.True(t, all[0].TotalPrice().Equal(decimal.NewFromInt(10)))

	stored, _ := f.users.Get(ctx, 100)
	got, ok := stored.PeriodFor(3)
	require.True(t, ok)
	assert.Equal(t, date(2024, 6, 9), got)

	untouched, _ := f.users.Get(ctx, 200)
	got, _ = untouched.PeriodFor(3)
	assert.Equal(t, date(2024, 5, 25), got)
}

func TestScheduler_RunOnce_ReserveIndividualAborts(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()

	sub := &models.Subscription{
		ID:       4,
		IsActive: true,
		Reserve:  true,
		Type:     models.TypeIndividual,
		Billing: models.Billing{
			Price:    decimal.NewFromInt(10),
			Currency: models.CurrencyEUR,
			Period:   models.PeriodMonthly,
		},
	}
	require.NoError(t, f.subs.Save(ctx, sub))

	err := f.scheduler.RunOnce(ctx, date(2024, 5, 10))
	assert.True(t, apperrors.IsInvariant(err))
}

func TestScheduler_RunOnce_ReserveWithFreeSlotsIsSkipped(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(5, nil, 100)
	sub.Reserve = true
	sub.Billing.TotalSeats = 4
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, _ := f.invoices.List(ctx)
	assert.Empty(t, all, "reserve capacity is free until it fills")

	stored, _ := f.subs.Get(ctx, 5)
	assert.Nil(t, stored.Billing.NextInvoiceDate)
}

func TestScheduler_RunOnce_FullReserveBecomesBillable(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(5, nil, 100, 200)
	sub.Reserve = true
	sub.Billing.TotalSeats = 2
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 200}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "a full reserve bills on the spot")
}

func TestScheduler_RunOnce_MissingRateSkipsItem(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(6, &today, 100)
	sub.Billing.Currency = models.CurrencyTRY
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today), "a missing rate must not abort the run")

	all, _ := f.invoices.List(ctx)
	assert.Empty(t, all)
}

func TestScheduler_InvoiceMemberNow(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := &models.Subscription{
		ID:       7,
		IsActive: true,
		Type:     models.TypeIndividual,
		Billing: models.Billing{
			Price:    decimal.NewFromInt(10),
			Currency: models.CurrencyEUR,
			Period:   models.PeriodMonthly,
			Members:  []int64{100},
		},
	}
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.InvoiceMemberNow(ctx, 7, 100, today))

	all, err := f.invoices.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(100), all[0].UserID)
	require.Len(t, all[0].Items, 1)
	assert.Equal(t, today, all[0].Items[0].PeriodStart)
	assert.Equal(t, date(2024, 6, 9), all[0].Items[0].PeriodEnd)
	assert.True(t, all[0].TotalPrice().Equal(decimal.NewFromInt(10)))

	stored, _ := f.users.Get(ctx, 100)
	got, ok := stored.PeriodFor(7)
	require.True(t, ok)
	assert.Equal(t, today, got)
}

func TestScheduler_InvoiceMemberNow_GroupRejected(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	require.NoError(t, f.subs.Save(ctx, groupSub(8, &today, 100)))

	err := f.scheduler.InvoiceMemberNow(ctx, 8, 100, today)
	assert.True(t, apperrors.IsInvariant(err))
}

func TestScheduler_InvoiceMemberNow_PaidInvoiceShortCircuits(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := &models.Subscription{
		ID:       9,
		IsActive: true,
		Type:     models.TypeIndividual,
		Billing: models.Billing{
			Price:    decimal.NewFromInt(10),
			Currency: models.CurrencyEUR,
			Period:   models.PeriodMonthly,
			Members:  []int64{100},
		},
	}
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))
	require.NoError(t, f.invoices.Save(ctx, &models.Invoice{
		ID:     "PAIDINV1",
		UserID: 100,
		Items:  []models.LineItem{{SubID: 9, Price: decimal.NewFromInt(10)}},
		Paid:   true,
	}))

	require.NoError(t, f.scheduler.InvoiceMemberNow(ctx, 9, 100, today))

	all, _ := f.invoices.List(ctx)
	assert.Len(t, all, 1, "an already settled subscription is not billed twice")
}

func TestScheduler_RunOnce_UninitializedGroupDateSkipped(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()

	require.NoError(t, f.subs.Save(ctx, groupSub(10, nil, 100)))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, date(2024, 5, 10)))

	all, _ := f.invoices.List(ctx)
	assert.Empty(t, all)
}

func TestScheduler_RunOnce_InactiveSubscriptionIgnored(t *testing.T) {
	f := newSchedulerFixture()
	ctx := context.Background()
	today := date(2024, 5, 10)

	sub := groupSub(11, &today, 100)
	sub.IsActive = false
	require.NoError(t, f.subs.Save(ctx, sub))
	require.NoError(t, f.users.Save(ctx, &models.User{ID: 100}))

	require.NoError(t, f.scheduler.RunOnce(ctx, today))

	all, _ := f.invoices.List(ctx)
	assert.Empty(t, all)
}
