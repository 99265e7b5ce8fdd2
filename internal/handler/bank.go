package handler

import (
	"net/http"
	"time"

	"bank-payment-schedule/internal/models"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// BankHandler 銀行（引き落とし口座）の CRUD。
type BankHandler struct {
	Store *store.Store
}

func NewBankHandler(st *store.Store) *BankHandler {
	return &BankHandler{Store: st}
}

// ---------- 请求/响应结构 ----------

type bankReq struct {
	Name string `json:"name" binding:"required"`
	Memo string `json:"memo"`
}

type bankResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toBankResp(b *models.Bank) bankResp {
	return bankResp{
		ID:        b.ID,
		Name:      b.Name,
		Memo:      b.Memo,
		CreatedAt: b.CreatedAt,
	}
}

// ---------- エンドポイント ----------

func (h *BankHandler) Create(c *gin.Context) {
	var req bankReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	bank := &models.Bank{Name: req.Name, Memo: req.Memo}
	if err := h.Store.CreateBank(c.Request.Context(), bank); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"bank": toBankResp(bank)})
}

func (h *BankHandler) List(c *gin.Context) {
	banks, err := h.Store.ListBanks(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	items := make([]bankResp, 0, len(banks))
	for i := range banks {
		items = append(items, toBankResp(&banks[i]))
	}
	util.Success(c, util.Response{"items": items, "total": len(items)})
}

func (h *BankHandler) Get(c *gin.Context) {
	bank, err := h.Store.GetBank(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"bank": toBankResp(bank)})
}

func (h *BankHandler) Update(c *gin.Context) {
	var req bankReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	bank, err := h.Store.UpdateBank(c.Request.Context(), c.Param("id"), req.Name, req.Memo)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"bank": toBankResp(bank)})
}

// Delete はカードや取引から参照されている銀行を拒否する（409）。
func (h *BankHandler) Delete(c *gin.Context) {
	if err := h.Store.DeleteBank(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"message": "削除しました"})
}
