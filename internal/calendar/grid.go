package calendar

import "time"

// DayCell is one cell of a 6-week month grid. Cells outside the target
// month carry real dates from the adjacent months, never zero values, so
// a renderer can use every cell directly.
type DayCell struct {
	Date          time.Time `json:"date"`
	InTargetMonth bool      `json:"in_target_month"`
	IsToday       bool      `json:"is_today"`
	IsWeekend     bool      `json:"is_weekend"`
	IsHoliday     bool      `json:"is_holiday"`
}

// GridCells is the fixed cell count of a month grid: 6 weeks of 7 days.
const GridCells = 42

// BuildMonthGrid returns the 42-cell, Sunday-first grid for (year, month).
// today is passed in rather than read from the clock so the result is
// deterministic.
func BuildMonthGrid(year int, month time.Month, today time.Time) []DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, JST)
	// back up to the Sunday on or before the 1st
	start := first.AddDate(0, 0, -int(first.Weekday()))

	todayKey := DateOf(today).Format("2006-01-02")

	cells := make([]DayCell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		cells = append(cells, DayCell{
			Date:          d,
			InTargetMonth: d.Month() == month && d.Year() == year,
			IsToday:       d.Format("2006-01-02") == todayKey,
			IsWeekend:     IsWeekend(d),
			IsHoliday:     IsNationalHoliday(d),
		})
	}
	return cells
}
