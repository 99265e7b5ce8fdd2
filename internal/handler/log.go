package handler

import (
	"strconv"

	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// LogHandler 操作ログの参照。
type LogHandler struct {
	Store *store.Store
}

func NewLogHandler(st *store.Store) *LogHandler {
	return &LogHandler{Store: st}
}

// List は新しい順の操作ログを返す。?limit=N（既定 100、上限 500）。
func (h *LogHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.Store.ListAudit(c.Request.Context(), limit)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{"items": entries, "total": len(entries)})
}
