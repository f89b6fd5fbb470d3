package models

import "time"

// SubscriptionPeriod is a user's billing record for one subscription.
// LastBilled drives individual-type paydays; Joined gates the minimum
// membership duration on leave.
type SubscriptionPeriod struct {
	SubID      int64
	LastBilled *time.Time
	Joined     *time.Time
}

// User represents a community member
type User struct {
	ID      int64
	Name    string
	Billing []SubscriptionPeriod // at most one record per subscription
}

// PeriodFor returns the stored billing date for a subscription
func (u *User) PeriodFor(subID int64) (time.Time, bool) {
	for _, b := range u.Billing {
		if b.SubID == subID && b.LastBilled != nil {
			return *b.LastBilled, true
		}
	}
	return time.Time{}, false
}

// SetPeriod upserts the stored billing date for a subscription
func (u *User) SetPeriod(subID int64, date time.Time) {
	for i := range u.Billing {
		if u.Billing[i].SubID == subID {
			u.Billing[i].LastBilled = &date
			return
		}
	}
	u.Billing = append(u.Billing, SubscriptionPeriod{SubID: subID, LastBilled: &date})
}

// JoinedAt returns the date the user joined a subscription
func (u *User) JoinedAt(subID int64) (time.Time, bool) {
	for _, b := range u.Billing {
		if b.SubID == subID && b.Joined != nil {
			return *b.Joined, true
		}
	}
	return time.Time{}, false
}

// SetJoined upserts the joined date for a subscription; nil clears it on leave
func (u *User) SetJoined(subID int64, date *time.Time) {
	for i := range u.Billing {
		if u.Billing[i].SubID == subID {
			u.Billing[i].Joined = date
			return
		}
	}
	u.Billing = append(u.Billing, SubscriptionPeriod{SubID: subID, Joined: date})
}
