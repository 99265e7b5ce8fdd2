package handler

import (
	"net/http"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// CardHandler クレジットカードと請求ルールの CRUD。
// 請求ルールを変更すると、手動上書きされていない取引の
// 引き落とし予定日がストア側で再計算される。
type CardHandler struct {
	Store *store.Store
}

func NewCardHandler(st *store.Store) *CardHandler {
	return &CardHandler{Store: st}
}

// ---------- 请求/响应结构 ----------

type cardReq struct {
	Name              string `json:"name" binding:"required"`
	BankID            string `json:"bank_id" binding:"required"`
	ClosingDay        string `json:"closing_day" binding:"required"`
	PaymentDay        string `json:"payment_day" binding:"required"`
	PaymentMonthShift *int   `json:"payment_month_shift"`
	AdjustWeekend     *bool  `json:"adjust_weekend"`
	Memo              string `json:"memo"`
}

type cardResp struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	BankID            string    `json:"bank_id"`
	ClosingDay        string    `json:"closing_day"`
	PaymentDay        string    `json:"payment_day"`
	PaymentMonthShift int       `json:"payment_month_shift"`
	AdjustWeekend     bool      `json:"adjust_weekend"`
	Memo              string    `json:"memo,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func toCardResp(card *models.Card) cardResp {
	return cardResp{
		ID:                card.ID,
		Name:              card.Name,
		BankID:            card.BankID,
		ClosingDay:        card.ClosingDay,
		PaymentDay:        card.PaymentDay,
		PaymentMonthShift: card.PaymentMonthShift,
		AdjustWeekend:     card.AdjustWeekend,
		Memo:              card.Memo,
		CreatedAt:         card.CreatedAt,
	}
}

func (r *cardReq) apply(card *models.Card) {
	card.Name = r.Name
	card.BankID = r.BankID
	card.ClosingDay = r.ClosingDay
	card.PaymentDay = r.PaymentDay
	card.Memo = r.Memo
	// 省略時は翌月払い・土日調整ありに倒す
	if r.PaymentMonthShift != nil {
		card.PaymentMonthShift = *r.PaymentMonthShift
	} else {
		card.PaymentMonthShift = 1
	}
	if r.AdjustWeekend != nil {
		card.AdjustWeekend = *r.AdjustWeekend
	} else {
		card.AdjustWeekend = true
	}
}

// ---------- エンドポイント ----------

func (h *CardHandler) Create(c *gin.Context) {
	var req cardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	card := &models.Card{}
	req.apply(card)
	if err := h.Store.CreateCard(c.Request.Context(), card); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"card": toCardResp(card)})
}

func (h *CardHandler) List(c *gin.Context) {
	cards, err := h.Store.ListCards(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	items := make([]cardResp, 0, len(cards))
	for i := range cards {
		items = append(items, toCardResp(&cards[i]))
	}
	util.Success(c, util.Response{"items": items, "total": len(items)})
}

func (h *CardHandler) Get(c *gin.Context) {
	card, err := h.Store.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"card": toCardResp(card)})
}

func (h *CardHandler) Update(c *gin.Context) {
	var req cardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	card, err := h.Store.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	req.apply(card)
	updated, err := h.Store.UpdateCard(c.Request.Context(), card)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"card": toCardResp(updated)})
}

func (h *CardHandler) Delete(c *gin.Context) {
	if err := h.Store.DeleteCard(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "削除しました"})
}
