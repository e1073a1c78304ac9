// Package timeutil provides UTC clock helpers and billing-period
// arithmetic, grounded on csp_billing_adapter/utils.py's get_now,
// date_to_string, string_to_date, and get_next_bill_time.
package timeutil

import (
	"fmt"
	"time"
)

// BillingInterval is one of the recognized billing_interval config values.
type BillingInterval string

const (
	Hourly  BillingInterval = "hourly"
	Daily   BillingInterval = "daily"
	Monthly BillingInterval = "monthly"
	Test    BillingInterval = "test"
	Fixed   BillingInterval = "fixed"
)

// Now returns the current UTC time. Centralized so every caller reads
// the clock the same way; it has no hook for substituting a fake clock.
func Now() time.Time {
	return time.Now().UTC()
}

// DateToString renders t as RFC3339 in UTC, matching Python's
// datetime.isoformat() for a tz-aware UTC datetime.
func DateToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// StringToDate parses an ISO-8601 timestamp, accepting both strict
// fractional-second forms and bare second-precision tz-offset forms.
func StringToDate(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05.999999999Z0700",
	}

	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("timeutil: cannot parse timestamp %q: %w", s, lastErr)
}

// GetDateDelta adds a fixed number of seconds to d, for the
// reporting-interval arithmetic that has nothing calendar-aware about it.
func GetDateDelta(d time.Time, seconds int) time.Time {
	return d.Add(time.Duration(seconds) * time.Second)
}

// addCalendarMonth adds one calendar month, clamping the day-of-month
// to the last valid day when the source day doesn't exist in the
// target month (e.g. Jan 31 + 1 month -> Feb 28/29, not Mar 3).
func addCalendarMonth(d time.Time) time.Time {
	year, month, day := d.Date()
	firstOfNext := time.Date(year, month, 1, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location()).AddDate(0, 1, 0)
	lastDayOfNext := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDayOfNext {
		day = lastDayOfNext
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// GetNextBillTime advances d by one unit of the given billing interval.
// fixed mode has no cadence of its own (billing dates are explicit) and
// is rejected here; callers in fixed mode must use the configured date
// list instead.
func GetNextBillTime(d time.Time, interval BillingInterval) (time.Time, error) {
	switch interval {
	case Hourly:
		return d.Add(time.Hour), nil
	case Daily:
		return d.AddDate(0, 0, 1), nil
	case Monthly:
		return addCalendarMonth(d), nil
	case Test:
		return d.Add(5 * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("timeutil: get_next_bill_time: unsupported billing_interval %q", interval)
	}
}

// subCalendarMonth mirrors addCalendarMonth in reverse.
func subCalendarMonth(d time.Time) time.Time {
	year, month, day := d.Date()
	firstOfThis := time.Date(year, month, 1, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
	firstOfPrev := firstOfThis.AddDate(0, -1, 0)
	lastDayOfPrev := firstOfThis.AddDate(0, 0, -1).Day()
	if day > lastDayOfPrev {
		day = lastDayOfPrev
	}
	return time.Date(firstOfPrev.Year(), firstOfPrev.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// GetPrevBillTime is the inverse of GetNextBillTime: given the *next*
// bill time, returns the bill time one interval before it. Used by the
// window-closure invariant (§3.1) and by the cache record validator.
func GetPrevBillTime(d time.Time, interval BillingInterval) (time.Time, error) {
	switch interval {
	case Hourly:
		return d.Add(-time.Hour), nil
	case Daily:
		return d.AddDate(0, 0, -1), nil
	case Monthly:
		return subCalendarMonth(d), nil
	case Test:
		return d.Add(-5 * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("timeutil: get_prev_bill_time: unsupported billing_interval %q", interval)
	}
}
