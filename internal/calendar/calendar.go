package calendar

import "time"

// JST 日本標準時（UTC+9、夏時間なし）。すべての日付計算はこのゾーンで行う。
var JST = time.FixedZone("JST", 9*60*60)

// DateOf truncates t to midnight JST.
func DateOf(t time.Time) time.Time {
	t = t.In(JST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, JST)
}

// IsWeekend reports whether t falls on Saturday or Sunday in JST.
func IsWeekend(t time.Time) bool {
	wd := t.In(JST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsNonBusinessDay reports whether t is a weekend or a national holiday.
func IsNonBusinessDay(t time.Time) bool {
	return IsWeekend(t) || IsNationalHoliday(t)
}

// RollForwardToBusinessDay advances t one day at a time until it lands
// on a business day. Returns t unchanged if it already is one.
func RollForwardToBusinessDay(t time.Time) time.Time {
	t = DateOf(t)
	for IsNonBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// RollBackwardToBusinessDay decrements t until it lands on a business day.
func RollBackwardToBusinessDay(t time.Time) time.Time {
	t = DateOf(t)
	for IsNonBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, JST).Day()
}

// AddMonths adds n months to t, clamping the day-of-month to the target
// month's length instead of overflowing: Jan 31 + 1 month = Feb 28/29.
func AddMonths(t time.Time, n int) time.Time {
	t = DateOf(t)
	y, m, d := t.Year(), t.Month(), t.Day()
	// normalize via the first of the target month, then clamp
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, JST)
	last := LastDayOfMonth(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, JST)
}
