package expiry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastermindankur/warrantywallet/expiry"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsExpired(t *testing.T) {
	now := date(2024, time.June, 1)

	tests := []struct {
		name       string
		expiryDate time.Time
		expected   bool
	}{
		{
			name:       "future date is not expired",
			expiryDate: date(2024, time.June, 15),
			expected:   false,
		},
		{
			name:       "past date is expired",
			expiryDate: date(2024, time.January, 1),
			expected:   true,
		},
		{
			name:       "same instant is not expired",
			expiryDate: now,
			expected:   false,
		},
		{
			name:       "one second before now is expired",
			expiryDate: now.Add(-time.Second),
			expected:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expiry.IsExpired(tt.expiryDate, now))
		})
	}
}

func TestRemainingLabel(t *testing.T) {
	now := date(2024, time.June, 1)

	tests := []struct {
		name       string
		expiryDate time.Time
		now        time.Time
		expected   string
	}{
		{
			name:       "expires in days",
			expiryDate: date(2024, time.June, 15),
			now:        now,
			expected:   "Expires in 14 days",
		},
		{
			name:       "expired months ago",
			expiryDate: date(2024, time.January, 1),
			now:        now,
			expected:   "Expired 5 months ago",
		},
		{
			name:       "expires in a single day",
			expiryDate: date(2024, time.June, 2),
			now:        now,
			expected:   "Expires in 1 day",
		},
		{
			name:       "expires in years and months keeps two units",
			expiryDate: date(2026, time.September, 16),
			now:        now,
			expected:   "Expires in 2 years, 3 months",
		},
		{
			name:       "expires in exactly one year",
			expiryDate: date(2025, time.June, 1),
			now:        now,
			expected:   "Expires in 1 year",
		},
		{
			name:       "expired years ago keeps two units",
			expiryDate: date(2021, time.March, 1),
			now:        now,
			expected:   "Expired 3 years, 3 months ago",
		},
		{
			name:       "expires today",
			expiryDate: now,
			now:        now,
			expected:   "Expires today",
		},
		{
			name:       "expired earlier the same day",
			expiryDate: now,
			now:        now.Add(9 * time.Hour),
			expected:   "Expired today",
		},
		{
			name:       "months and days drop the days unit when two larger units exist",
			expiryDate: date(2025, time.July, 3),
			now:        now,
			expected:   "Expires in 1 year, 1 month",
		},
		{
			name:       "end of month borrow",
			expiryDate: date(2024, time.March, 1),
			now:        date(2024, time.January, 31),
			expected:   "Expires in 30 days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expiry.RemainingLabel(tt.expiryDate, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRemainingLabelInvalidDate(t *testing.T) {
	_, err := expiry.RemainingLabel(time.Time{}, date(2024, time.June, 1))
	assert.ErrorIs(t, err, expiry.ErrInvalidDate)
}

func TestValidDate(t *testing.T) {
	assert.False(t, expiry.ValidDate(time.Time{}))
	assert.True(t, expiry.ValidDate(date(2024, time.June, 1)))
}
