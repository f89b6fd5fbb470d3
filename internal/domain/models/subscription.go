package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the ISO code of a billing currency. All invoicing happens in
// EUR; other currencies are converted through the cached exchange rate table.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyTRY Currency = "TRY"
)

// ParseCurrency parses a stored currency code
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyEUR, CurrencyTRY:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("invalid currency: %q", s)
	}
}

// Period represents how often a subscription is billed
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod parses a stored billing period
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMonthly, PeriodYearly:
		return Period(s), nil
	default:
		return "", fmt.Errorf("invalid period: %q", s)
	}
}

// Days returns the fixed day count of one billing period. Calendar arithmetic
// is deliberately not used: a month is always 30 days and a year 365.
func (p Period) Days() int {
	if p == PeriodYearly {
		return 365
	}
	return 30
}

// SubscriptionType distinguishes single-payer subscriptions with per-user
// billing dates from group subscriptions with one shared date.
type SubscriptionType string

const (
	TypeIndividual SubscriptionType = "individual"
	TypeGroup      SubscriptionType = "group"
)

// ParseSubscriptionType parses a stored subscription type
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	switch SubscriptionType(s) {
	case TypeIndividual, TypeGroup:
		return SubscriptionType(s), nil
	default:
		return "", fmt.Errorf("invalid subscription type: %q", s)
	}
}

// Billing holds the billing configuration of a subscription
type Billing struct {
	Price           decimal.Decimal
	Currency        Currency
	Period          Period
	NextInvoiceDate *time.Time // group subscriptions only; nil means not yet billable
	TotalSeats      int
	Members         []int64 // ordered, no duplicates
	MinDays         int     // minimum membership duration before leave is allowed, 0 = none
}

// Subscription represents a shared subscription tracked by the billing engine
type Subscription struct {
	ID            int64
	Name          string
	IsActive      bool
	Reserve       bool // pre-paid capacity, billed in full once seats fill
	Type          SubscriptionType
	Shared        bool
	Credentials   string
	ForbiddenWith []int64
	Billing       Billing
}

// Validate checks the structural invariants that every mutation site must
// preserve.
func (s *Subscription) Validate() error {
	if s.Reserve && s.Type == TypeIndividual {
		return fmt.Errorf("subscription %d cannot be reserve and individual at the same time", s.ID)
	}
	if s.Billing.TotalSeats > 0 && len(s.Billing.Members) > s.Billing.TotalSeats {
		return fmt.Errorf("subscription %d has %d members but only %d seats",
			s.ID, len(s.Billing.Members), s.Billing.TotalSeats)
	}
	return nil
}

// IsFull reports whether every seat is taken
func (s *Subscription) IsFull() bool {
	return s.Billing.TotalSeats > 0 && len(s.Billing.Members) >= s.Billing.TotalSeats
}

// FreeSlots returns the number of unassigned seats
func (s *Subscription) FreeSlots() int {
	return s.Billing.TotalSeats - len(s.Billing.Members)
}

// HasMember reports whether the user currently belongs to the subscription
func (s *Subscription) HasMember(userID int64) bool {
	for _, m := range s.Billing.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AddMember appends a user to the member list
func (s *Subscription) AddMember(userID int64) error {
	if s.HasMember(userID) {
		return fmt.Errorf("user %d is already a member of subscription %d", userID, s.ID)
	}
	if s.IsFull() {
		return fmt.Errorf("subscription %d is full", s.ID)
	}
	s.Billing.Members = append(s.Billing.Members, userID)
	return nil
}

// RemoveMember removes a user from the member list. Removing a non-member is
// a no-op.
func (s *Subscription) RemoveMember(userID int64) {
	for i, m := range s.Billing.Members {
		if m == userID {
			s.Billing.Members = append(s.Billing.Members[:i], s.Billing.Members[i+1:]...)
			return
		}
	}
}

// ShiftDate moves a date by n billing periods using fixed day counts
func (s *Subscription) ShiftDate(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n*s.Billing.Period.Days())
}
