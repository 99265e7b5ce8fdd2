package util

import (
	"fmt"
	"time"
)

// FieldError is a per-field validation failure, surfaced so a caller can
// highlight exactly which field was rejected.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// MaxAmount 金額の上限は1億円。
const MaxAmount = 100_000_000

// ValidateAmount 金額は正の整数円（1円単位、小数なし）。
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return &FieldError{Field: "amount", Reason: "must be positive"}
	}
	if amount > MaxAmount {
		return &FieldError{Field: "amount", Reason: fmt.Sprintf("must be at most %d yen", int64(MaxAmount))}
	}
	return nil
}

// ValidateDate 日付文字列（YYYY-MM-DD）を検証する。
func ValidateDate(field, dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, &FieldError{Field: field, Reason: "is required"}
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return t, nil
}

// ValidateText 任意テキスト欄の長さ上限を検証する。
func ValidateText(field, s string, maxLen int) error {
	if len([]rune(s)) > maxLen {
		return &FieldError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxLen)}
	}
	return nil
}

// ValidateRequired 必須テキスト欄を検証する。
func ValidateRequired(field, s string, maxLen int) error {
	if s == "" {
		return &FieldError{Field: field, Reason: "is required"}
	}
	return ValidateText(field, s, maxLen)
}
