package handler

import (
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// CalendarHandler カレンダー表示用の月グリッドと祝日情報。
// 施錠中でも使えるので認証グループの外に置く。
type CalendarHandler struct{}

func NewCalendarHandler() *CalendarHandler {
	return &CalendarHandler{}
}

type gridCell struct {
	Date          string `json:"date"`
	InTargetMonth bool   `json:"in_target_month"`
	IsToday       bool   `json:"is_today"`
	IsWeekend     bool   `json:"is_weekend"`
	IsHoliday     bool   `json:"is_holiday"`
	HolidayName   string `json:"holiday_name,omitempty"`
	IsBusinessDay bool   `json:"is_business_day"`
}

// MonthGrid は日曜始まり 42 マスの月グリッドを返す。?month=YYYY-MM、
// 未指定なら今月（JST）。
func (h *CalendarHandler) MonthGrid(c *gin.Context) {
	year, month, ok, err := parseYearMonth(c)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	now := time.Now().In(calendar.JST)
	if !ok {
		year, month = now.Year(), now.Month()
	}

	cells := calendar.BuildMonthGrid(year, month, now)
	out := make([]gridCell, 0, len(cells))
	for _, cell := range cells {
		out = append(out, gridCell{
			Date:          cell.Date.Format("2006-01-02"),
			InTargetMonth: cell.InTargetMonth,
			IsToday:       cell.IsToday,
			IsWeekend:     cell.IsWeekend,
			IsHoliday:     cell.IsHoliday,
			HolidayName:   calendar.HolidayName(cell.Date),
			IsBusinessDay: !calendar.IsNonBusinessDay(cell.Date),
		})
	}
	util.Success(c, util.Response{
		"year":  year,
		"month": int(month),
		"cells": out,
	})
}
