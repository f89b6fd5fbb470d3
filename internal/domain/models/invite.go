package models

import "time"

// InviteLifetimeDays is how long an invite stays usable after issue
const InviteLifetimeDays = 2

// Invite is a one-time join link issued by a member
type Invite struct {
	ID        string
	FromUser  int64
	Used      bool
	UsedBy    int64
	IssueDate time.Time
}

// ExpiryDate returns the last day the invite can be used
func (v *Invite) ExpiryDate() time.Time {
	return v.IssueDate.AddDate(0, 0, InviteLifetimeDays)
}

// Spoiled reports whether the invite expired unused as of the given day
func (v *Invite) Spoiled(today time.Time) bool {
	if v.Used {
		return false
	}
	return v.ExpiryDate().Before(today)
}

// RandomInviteID generates a 10-character uppercase alphanumeric id
func RandomInviteID() string {
	return randomID(10)
}
