package schedule

import (
	"fmt"
	"strconv"

	"bank-payment-schedule/internal/models"
)

// MonthEnd is the day-spec variant meaning "the last day of the month".
const MonthEnd = "月末"

// RuleError is a configuration error in a card's billing rule. It is
// raised when the rule is validated (on save), never during calculation.
type RuleError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("billing rule %s=%q: %s", e.Field, e.Value, e.Reason)
}

// DaySpec is a two-variant day-of-month: "月末" or a fixed day 1–31.
type DaySpec struct {
	monthEnd bool
	day      int
}

// ParseDaySpec validates and parses a day-spec string. field names the
// configuration field for per-field error reporting.
func ParseDaySpec(field, s string) (DaySpec, error) {
	if s == MonthEnd {
		return DaySpec{monthEnd: true}, nil
	}
	day, err := strconv.Atoi(s)
	if err != nil {
		return DaySpec{}, &RuleError{Field: field, Value: s, Reason: "must be 月末 or a day number"}
	}
	if day < 1 || day > 31 {
		return DaySpec{}, &RuleError{Field: field, Value: s, Reason: "day must be between 1 and 31"}
	}
	return DaySpec{day: day}, nil
}

// IsMonthEnd reports whether the spec is the 月末 variant.
func (d DaySpec) IsMonthEnd() bool { return d.monthEnd }

// String returns the canonical stored form of the spec.
func (d DaySpec) String() string {
	if d.monthEnd {
		return MonthEnd
	}
	return strconv.Itoa(d.day)
}

// Rule is a validated card billing rule.
type Rule struct {
	Closing       DaySpec
	Payment       DaySpec
	MonthShift    int // 0=当月, 1=翌月, 2=翌々月
	AdjustWeekend bool
}

// NewRule validates raw billing-rule values and builds a Rule.
func NewRule(closingDay, paymentDay string, monthShift int, adjustWeekend bool) (Rule, error) {
	closing, err := ParseDaySpec("closing_day", closingDay)
	if err != nil {
		return Rule{}, err
	}
	payment, err := ParseDaySpec("payment_day", paymentDay)
	if err != nil {
		return Rule{}, err
	}
	if monthShift < 0 || monthShift > 2 {
		return Rule{}, &RuleError{
			Field:  "payment_month_shift",
			Value:  strconv.Itoa(monthShift),
			Reason: "must be 0, 1 or 2",
		}
	}
	return Rule{
		Closing:       closing,
		Payment:       payment,
		MonthShift:    monthShift,
		AdjustWeekend: adjustWeekend,
	}, nil
}

// RuleForCard builds the billing rule from a card's stored configuration.
func RuleForCard(c *models.Card) (Rule, error) {
	return NewRule(c.ClosingDay, c.PaymentDay, c.PaymentMonthShift, c.AdjustWeekend)
}
