package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2024, 3, 15, 17, 42, 9, 123, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}

func TestStartOfDay_NonUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	ts := time.Date(2024, 3, 15, 1, 30, 0, 0, loc) // 22:30 on the 14th in UTC
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)
	b := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
}

func TestDaysBetween(t *testing.T) {
	a := Date(2024, 1, 15)
	assert.Equal(t, 30, DaysBetween(a, Date(2024, 2, 14)))
	assert.Equal(t, -1, DaysBetween(a, Date(2024, 1, 14)))
	assert.Equal(t, 0, DaysBetween(a, a.Add(6*time.Hour)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2006-01-02", "2024-01-15")
	assert.NoError(t, err)
	assert.Equal(t, Date(2024, 1, 15), d)

	_, err = ParseDate("2006-01-02", "not-a-date")
	assert.Error(t, err)
}
