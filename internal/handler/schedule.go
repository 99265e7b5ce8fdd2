package handler

import (
	"net/http"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler 月別の引き落とし集計と予定日のプレビュー。
type ScheduleHandler struct {
	Store *store.Store
}

func NewScheduleHandler(st *store.Store) *ScheduleHandler {
	return &ScheduleHandler{Store: st}
}

// Monthly は指定月の銀行×日付クロス集計を返す。?month=YYYY-MM、
// 未指定なら今月（JST）。
func (h *ScheduleHandler) Monthly(c *gin.Context) {
	year, month, ok, err := parseYearMonth(c)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !ok {
		now := time.Now().In(calendar.JST)
		year, month = now.Year(), now.Month()
	}

	agg, err := h.Store.MonthlySchedule(c.Request.Context(), year, month)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"schedule": agg})
}

// ---------- 予定日プレビュー ----------

type previewReq struct {
	Date              string `json:"date" binding:"required"` // YYYY-MM-DD
	ClosingDay        string `json:"closing_day" binding:"required"`
	PaymentDay        string `json:"payment_day" binding:"required"`
	PaymentMonthShift int    `json:"payment_month_shift"`
	AdjustWeekend     bool   `json:"adjust_weekend"`
}

// Preview は保存せずに請求ルールを適用した結果を返す。カード登録
// フォームでルールの効果を確かめる用途。
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req previewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	date, err := util.ValidateDate("date", req.Date)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	rule, err := schedule.NewRule(req.ClosingDay, req.PaymentDay, req.PaymentMonthShift, req.AdjustWeekend)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	res := rule.Compute(date)
	util.Success(c, util.Response{
		"scheduled_date":      res.ScheduledDate.Format("2006-01-02"),
		"pre_adjustment_date": res.PreAdjustmentDate.Format("2006-01-02"),
		"was_adjusted":        res.WasAdjusted,
	})
}
