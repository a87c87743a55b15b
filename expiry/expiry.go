// Package expiry classifies warranty expiry dates relative to a reference time.
package expiry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a record carries no usable expiry date.
var ErrInvalidDate = errors.New("invalid expiry date")

// maxLabelUnits is the number of most-significant duration units kept in a label.
const maxLabelUnits = 2

// ValidDate reports whether t carries a usable calendar date.
func ValidDate(t time.Time) bool {
	return !t.IsZero()
}

// IsExpired reports whether the expiry date is strictly before now.
func IsExpired(expiryDate, now time.Time) bool {
	return expiryDate.Before(now)
}

// RemainingLabel produces the human readable remaining-time string shown next
// to each record in a notification, e.g. "Expires in 1 year, 2 months" or
// "Expired 5 months ago". Records expiring on the current calendar day yield
// "Expires today" (or "Expired today" once past).
func RemainingLabel(expiryDate, now time.Time) (string, error) {
	if !ValidDate(expiryDate) {
		return "", ErrInvalidDate
	}

	expired := IsExpired(expiryDate, now)

	var years, months, days int
	if expired {
		years, months, days = calendarDiff(expiryDate, now)
	} else {
		years, months, days = calendarDiff(now, expiryDate)
	}

	var parts []string
	if years > 0 {
		parts = append(parts, pluralize(years, "year"))
	}
	if months > 0 {
		parts = append(parts, pluralize(months, "month"))
	}
	if days > 0 {
		parts = append(parts, pluralize(days, "day"))
	}

	if len(parts) == 0 {
		if expired {
			return "Expired today", nil
		}
		return "Expires today", nil
	}

	if len(parts) > maxLabelUnits {
		parts = parts[:maxLabelUnits]
	}

	duration := strings.Join(parts, ", ")

	if expired {
		return fmt.Sprintf("Expired %s ago", duration), nil
	}

	return fmt.Sprintf("Expires in %s", duration), nil
}

// calendarDiff returns the calendar-aware breakdown of the interval from start
// to end as whole years, months and days. start must not be after end.
func calendarDiff(start, end time.Time) (years, months, days int) {
	sy, sm, sd := start.UTC().Date()
	ey, em, ed := end.UTC().Date()

	years = ey - sy
	months = int(em) - int(sm)
	days = ed - sd

	for i := 0; days < 0; i++ {
		// borrow the length of the month i+1 steps before end
		prev := time.Date(ey, em-time.Month(i), 0, 0, 0, 0, 0, time.UTC)
		days += prev.Day()
		months--
	}

	if months < 0 {
		months += 12
		years--
	}

	if years < 0 {
		return 0, 0, 0
	}

	return years, months, days
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
