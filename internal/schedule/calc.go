package schedule

import (
	"time"

	"bank-payment-schedule/internal/calendar"
)

// Result is a computed withdrawal date. PreAdjustmentDate always carries
// the date before any business-day roll-forward so callers can show both.
type Result struct {
	ScheduledDate     time.Time `json:"scheduled_date"`
	PreAdjustmentDate time.Time `json:"pre_adjustment_date"`
	WasAdjusted       bool      `json:"was_adjusted"`
}

// resolve returns the concrete day of the spec within (year, month),
// clamping a fixed day to the month's length (day 31 in February ends up
// on the 28th/29th).
func (d DaySpec) resolve(year int, month time.Month) int {
	last := calendar.LastDayOfMonth(year, month)
	if d.monthEnd || d.day > last {
		return last
	}
	return d.day
}

// Compute maps a transaction date to the withdrawal date under this card
// rule. Pure and idempotent: no clock access, a valid rule never fails.
//
//  1. resolve the closing day in the transaction's month
//  2. purchases after the closing day belong to the next cycle
//  3. shift the cycle month by MonthShift
//  4. resolve the payment day in the target month
//  5. optionally roll forward to the next business day
func (r Rule) Compute(txDate time.Time) Result {
	d := calendar.DateOf(txDate)
	year, month := d.Year(), d.Month()

	closing := r.Closing.resolve(year, month)
	cycle := time.Date(year, month, 1, 0, 0, 0, 0, calendar.JST)
	if d.Day() > closing {
		cycle = calendar.AddMonths(cycle, 1)
	}

	target := calendar.AddMonths(cycle, r.MonthShift)
	payDay := r.Payment.resolve(target.Year(), target.Month())
	payDate := time.Date(target.Year(), target.Month(), payDay, 0, 0, 0, 0, calendar.JST)

	return adjust(payDate, r.AdjustWeekend)
}

// BankDebit computes the withdrawal date for a direct bank debit: the
// transaction date itself, optionally rolled forward to a business day.
func BankDebit(txDate time.Time, adjustWeekend bool) Result {
	return adjust(calendar.DateOf(txDate), adjustWeekend)
}

func adjust(d time.Time, enabled bool) Result {
	res := Result{ScheduledDate: d, PreAdjustmentDate: d}
	if enabled && calendar.IsNonBusinessDay(d) {
		res.ScheduledDate = calendar.RollForwardToBusinessDay(d)
		res.WasAdjusted = true
	}
	return res
}
