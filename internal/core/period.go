package core

import "time"

// Date arithmetic for billing periods. time.AddDate normalizes overflowing
// days (Jan 31 + 1 month = Mar 2/3), which is wrong for billing spans: a plan
// started on the 31st must bill through the last day of shorter months. The
// helpers below clamp to the end of the target month instead.

// Date builds a UTC calendar date with zero time of day. All billing dates in
// this package are normalized through it.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return Date(y, m, d)
}

// AddMonths adds n calendar months, clamping the day to the length of the
// target month (2024-01-31 + 1 → 2024-02-29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	// First-of-month anchor avoids AddDate overflow, then clamp the day.
	anchor := Date(y, m, 1).AddDate(0, n, 0)
	ay, am, _ := anchor.Date()
	if last := daysInMonth(ay, am); d > last {
		d = last
	}
	return Date(ay, am, d)
}

// AddYears adds n calendar years, clamping Feb 29 to Feb 28 in non-leap years.
func AddYears(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	if last := daysInMonth(y+n, m); d > last {
		d = last
	}
	return Date(y+n, m, d)
}

// NextMonthFirstDay returns the first calendar day of the month after now.
func NextMonthFirstDay(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return Date(y, m, 1).AddDate(0, 1, 0)
}

// NextYearFirstDay returns January 1 of the year after now.
func NextYearFirstDay(now time.Time) time.Time {
	return Date(now.UTC().Year()+1, time.January, 1)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// inclusiveDays counts the days in [from, to], both ends included.
func inclusiveDays(from, to time.Time) int {
	return int(to.Sub(from).Hours()/24) + 1
}

// Period is one invoice span, inclusive on both ends.
type Period struct {
	From time.Time
	To   time.Time
}

// BillingPeriods walks from start up to end (exclusive) in cadence-sized steps,
// clamping the final step to end. Each period's To is the day before the next
// period's From, so consecutive periods are contiguous and non-overlapping.
// Returns nil when start >= end.
func BillingPeriods(start, end time.Time, cadence Cadence) []Period {
	start, end = DateOnly(start), DateOnly(end)

	var periods []Period
	current := start
	for current.Before(end) {
		var next time.Time
		switch cadence {
		case CadenceMonthly:
			next = AddMonths(current, 1)
		case CadenceYearly:
			next = AddYears(current, 1)
		default:
			return periods
		}
		if next.After(end) {
			next = end
		}
		// Only the service period is billed: the step end is the day before
		// the next period begins.
		periods = append(periods, Period{From: current, To: next.AddDate(0, 0, -1)})
		current = next
	}
	return periods
}
