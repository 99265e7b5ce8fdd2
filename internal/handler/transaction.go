package handler

import (
	"net/http"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 取引の CRUD。引き落とし予定日は作成・更新時に
// ストア側で解決される。scheduled_pay_date を指定して
// is_schedule_editable を立てると手動上書きになる。
type TransactionHandler struct {
	Store *store.Store
}

func NewTransactionHandler(st *store.Store) *TransactionHandler {
	return &TransactionHandler{Store: st}
}

// ---------- 请求/响应结构 ----------

type transactionReq struct {
	Date               string  `json:"date" binding:"required"` // YYYY-MM-DD
	Amount             int64   `json:"amount" binding:"required"`
	StoreName          string  `json:"store_name"`
	Usage              string  `json:"usage"`
	PaymentType        string  `json:"payment_type" binding:"required,oneof=card bank"`
	CardID             *string `json:"card_id"`
	BankID             *string `json:"bank_id"`
	AdjustWeekend      bool    `json:"adjust_weekend"`
	IsScheduleEditable bool    `json:"is_schedule_editable"`
	ScheduledPayDate   string  `json:"scheduled_pay_date"` // 手動上書き時のみ
	Memo               string  `json:"memo"`
}

type transactionResp struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"`
	Amount             int64     `json:"amount"`
	StoreName          string    `json:"store_name,omitempty"`
	Usage              string    `json:"usage,omitempty"`
	PaymentType        string    `json:"payment_type"`
	CardID             *string   `json:"card_id,omitempty"`
	BankID             *string   `json:"bank_id,omitempty"`
	ScheduledPayDate   string    `json:"scheduled_pay_date"`
	AdjustWeekend      bool      `json:"adjust_weekend"`
	IsScheduleEditable bool      `json:"is_schedule_editable"`
	Memo               string    `json:"memo,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func toTransactionResp(t *models.Transaction) transactionResp {
	return transactionResp{
		ID:                 t.ID,
		Date:               t.Date.Format("2006-01-02"),
		Amount:             t.Amount,
		StoreName:          t.StoreName,
		Usage:              t.Usage,
		PaymentType:        string(t.PaymentType),
		CardID:             t.CardID,
		BankID:             t.BankID,
		ScheduledPayDate:   t.ScheduledPayDate.Format("2006-01-02"),
		AdjustWeekend:      t.AdjustWeekend,
		IsScheduleEditable: t.IsScheduleEditable,
		Memo:               t.Memo,
		CreatedAt:          t.CreatedAt,
	}
}

func (r *transactionReq) toModel() (*models.Transaction, error) {
	date, err := util.ValidateDate("date", r.Date)
	if err != nil {
		return nil, err
	}
	t := &models.Transaction{
		Date:               date,
		Amount:             r.Amount,
		StoreName:          r.StoreName,
		Usage:              r.Usage,
		PaymentType:        models.PaymentType(r.PaymentType),
		CardID:             r.CardID,
		BankID:             r.BankID,
		AdjustWeekend:      r.AdjustWeekend,
		IsScheduleEditable: r.IsScheduleEditable,
		Memo:               r.Memo,
	}
	if r.ScheduledPayDate != "" {
		sched, err := util.ValidateDate("scheduled_pay_date", r.ScheduledPayDate)
		if err != nil {
			return nil, err
		}
		t.ScheduledPayDate = sched
	}
	return t, nil
}

// ---------- エンドポイント ----------

func (h *TransactionHandler) Create(c *gin.Context) {
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	tx, err := req.toModel()
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if err := h.Store.CreateTransaction(c.Request.Context(), tx); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": toTransactionResp(tx)})
}

// List は ?month=YYYY-MM（引き落とし予定月）または
// ?start=YYYY-MM-DD&end=YYYY-MM-DD（取引日の範囲）で絞り込む。
func (h *TransactionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	year, month, hasMonth, err := parseYearMonth(c)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	var txs []models.Transaction
	if hasMonth {
		txs, err = h.Store.ListTransactionsScheduledIn(ctx, year, month)
	} else {
		var from, to time.Time
		if s := c.Query("start"); s != "" {
			if from, err = util.ValidateDate("start", s); err != nil {
				writeStoreError(c, err)
				return
			}
		} else {
			// 既定は直近 3 ヶ月
			now := calendar.DateOf(time.Now())
			from = now.AddDate(0, -3, 0)
		}
		if s := c.Query("end"); s != "" {
			if to, err = util.ValidateDate("end", s); err != nil {
				writeStoreError(c, err)
				return
			}
			to = to.AddDate(0, 0, 1)
		} else {
			to = calendar.DateOf(time.Now()).AddDate(0, 0, 1)
		}
		txs, err = h.Store.ListTransactionsByDateRange(ctx, from, to)
	}
	if err != nil {
		writeStoreError(c, err)
		return
	}

	items := make([]transactionResp, 0, len(txs))
	var total int64
	for i := range txs {
		items = append(items, toTransactionResp(&txs[i]))
		total += txs[i].Amount
	}
	util.Success(c, util.Response{
		"items":        items,
		"total":        len(items),
		"total_amount": total,
	})
}

func (h *TransactionHandler) Get(c *gin.Context) {
	tx, err := h.Store.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": toTransactionResp(tx)})
}

func (h *TransactionHandler) Update(c *gin.Context) {
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	tx, err := req.toModel()
	if err != nil {
		writeStoreError(c, err)
		return
	}
	tx.ID = c.Param("id")
	updated, err := h.Store.UpdateTransaction(c.Request.Context(), tx)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": toTransactionResp(updated)})
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	if err := h.Store.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "削除しました"})
}
