package util

import (
	"errors"
	"testing"
)

func TestValidateAmount(t *testing.T) {
	for _, amount := range []int64{1, 100, 15000, MaxAmount} {
		if err := ValidateAmount(amount); err != nil {
			t.Errorf("ValidateAmount(%d) = %v, want nil", amount, err)
		}
	}

	for _, amount := range []int64{0, -1, -15000, MaxAmount + 1} {
		err := ValidateAmount(amount)
		if err == nil {
			t.Errorf("ValidateAmount(%d) = nil, want error", amount)
			continue
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != "amount" {
			t.Errorf("ValidateAmount(%d) should return a FieldError for amount, got %v", amount, err)
		}
	}
}

func TestValidateDate(t *testing.T) {
	for _, s := range []string{"2024-01-01", "2024-12-31", "2025-06-15"} {
		if _, err := ValidateDate("date", s); err != nil {
			t.Errorf("ValidateDate(%q) = %v, want nil", s, err)
		}
	}

	for _, s := range []string{"", "2024/01/01", "01-01-2024", "2024-13-01", "not a date"} {
		_, err := ValidateDate("date", s)
		if err == nil {
			t.Errorf("ValidateDate(%q) = nil, want error", s)
			continue
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != "date" {
			t.Errorf("ValidateDate(%q) should return a FieldError for date, got %v", s, err)
		}
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("memo", "コンビニ", 10); err != nil {
		t.Errorf("short text should pass: %v", err)
	}
	// length is counted in runes, not bytes
	if err := ValidateText("memo", "あいうえおかきくけこ", 10); err != nil {
		t.Errorf("10 runes should pass: %v", err)
	}
	if err := ValidateText("memo", "あいうえおかきくけこさ", 10); err == nil {
		t.Error("11 runes should fail")
	}
}

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("name", "", 64); err == nil {
		t.Error("empty required field should fail")
	}
	if err := ValidateRequired("name", "みずほ銀行", 64); err != nil {
		t.Errorf("valid required field failed: %v", err)
	}
}
