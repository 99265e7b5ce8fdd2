package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, JST)
}

func TestIsWeekend(t *testing.T) {
	if !IsWeekend(date(2025, 5, 10)) { // Saturday
		t.Error("2025-05-10 is a Saturday")
	}
	if !IsWeekend(date(2025, 5, 11)) { // Sunday
		t.Error("2025-05-11 is a Sunday")
	}
	if IsWeekend(date(2025, 5, 12)) { // Monday
		t.Error("2025-05-12 is a Monday")
	}
}

func TestIsNationalHoliday(t *testing.T) {
	cases := []struct {
		d    time.Time
		want bool
	}{
		{date(2025, 1, 1), true},   // 元日
		{date(2025, 5, 6), true},   // 振替休日
		{date(2025, 11, 24), true}, // 振替休日（勤労感謝の日が日曜）
		{date(2026, 9, 22), true},  // 国民の休日
		{date(2025, 5, 7), false},
		{date(1999, 1, 1), false}, // テーブル範囲外は false
		{date(2099, 1, 1), false},
	}
	for _, c := range cases {
		if got := IsNationalHoliday(c.d); got != c.want {
			t.Errorf("IsNationalHoliday(%s) = %v, want %v", c.d.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestRollForwardToBusinessDay(t *testing.T) {
	// 2025-05-03〜05-06 は連休（憲法記念日/みどりの日/こどもの日/振替休日）
	got := RollForwardToBusinessDay(date(2025, 5, 3))
	if want := date(2025, 5, 7); !got.Equal(want) {
		t.Errorf("roll forward = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// already a business day: unchanged
	got = RollForwardToBusinessDay(date(2025, 5, 7))
	if want := date(2025, 5, 7); !got.Equal(want) {
		t.Errorf("business day must stay put, got %s", got.Format("2006-01-02"))
	}
}

func TestRollBackwardToBusinessDay(t *testing.T) {
	got := RollBackwardToBusinessDay(date(2025, 5, 6))
	if want := date(2025, 5, 2); !got.Equal(want) {
		t.Errorf("roll backward = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestLastDayOfMonth(t *testing.T) {
	cases := []struct {
		y    int
		m    time.Month
		want int
	}{
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, c := range cases {
		if got := LastDayOfMonth(c.y, c.m); got != c.want {
			t.Errorf("LastDayOfMonth(%d, %d) = %d, want %d", c.y, c.m, got, c.want)
		}
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	// Jan 31 + 1 month must clamp to end of February, not overflow into March
	got := AddMonths(date(2025, 1, 31), 1)
	if want := date(2025, 2, 28); !got.Equal(want) {
		t.Errorf("AddMonths = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	got = AddMonths(date(2024, 1, 31), 1)
	if want := date(2024, 2, 29); !got.Equal(want) {
		t.Errorf("AddMonths leap = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	// year rollover
	got = AddMonths(date(2025, 11, 30), 2)
	if want := date(2026, 1, 30); !got.Equal(want) {
		t.Errorf("AddMonths year rollover = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestBuildMonthGrid(t *testing.T) {
	today := date(2025, 9, 15)
	cells := BuildMonthGrid(2025, time.September, today)

	if len(cells) != GridCells {
		t.Fatalf("grid size = %d, want %d", len(cells), GridCells)
	}

	// 2025-09-01 is a Monday, so the grid starts on Sunday 2025-08-31
	if !cells[0].Date.Equal(date(2025, 8, 31)) {
		t.Errorf("first cell = %s, want 2025-08-31", cells[0].Date.Format("2006-01-02"))
	}
	if cells[0].InTargetMonth {
		t.Error("2025-08-31 is outside September")
	}
	if cells[0].Date.Weekday() != time.Sunday {
		t.Error("grid must start on Sunday")
	}

	var todays, inMonth int
	for _, c := range cells {
		if c.IsToday {
			todays++
		}
		if c.InTargetMonth {
			inMonth++
		}
		if c.Date.IsZero() {
			t.Fatal("grid cells must carry real dates")
		}
	}
	if todays != 1 {
		t.Errorf("exactly one cell should be today, got %d", todays)
	}
	if inMonth != 30 {
		t.Errorf("September has 30 days in the target month, got %d", inMonth)
	}

	// 2025-09-15 is 敬老の日 and also today
	for _, c := range cells {
		if c.Date.Equal(today) {
			if !c.IsHoliday {
				t.Error("2025-09-15 should be flagged as a holiday")
			}
		}
	}
}
