package models

// ReminderState is one of the three single-day touchpoints of an unpaid
// invoice's lifecycle. It is derived from dates on every run, never stored.
type ReminderState string

const (
	ReminderPreDue  ReminderState = "pre_due" // payTill is two days away
	ReminderDue     ReminderState = "due"     // payTill is today
	ReminderOverdue ReminderState = "overdue" // payTill was two days ago
)

// AllowsPayment reports whether the reminder should still offer a payment
// action. Overdue invoices suspend service instead.
func (s ReminderState) AllowsPayment() bool {
	return s != ReminderOverdue
}
