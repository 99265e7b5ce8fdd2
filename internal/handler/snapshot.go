package handler

import (
	"fmt"
	"net/http"
	"time"

	"bank-payment-schedule/internal/calendar"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// SnapshotHandler 全データのエクスポートと復元。スナップショットは
// 平文 JSON なので、取り扱いは利用者の責任になる。
type SnapshotHandler struct {
	Store *store.Store
}

func NewSnapshotHandler(st *store.Store) *SnapshotHandler {
	return &SnapshotHandler{Store: st}
}

// Export は復号済みの全レコードを JSON ダウンロードとして返す。
func (h *SnapshotHandler) Export(c *gin.Context) {
	snap, err := h.Store.ExportSnapshot(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"snapshot_%s.json\"",
		time.Now().In(calendar.JST).Format("20060102")))
	c.JSON(http.StatusOK, snap)
}

// Import はスナップショットを検証し、既存データを置き換える。
// 一部だけ取り込まれることはない。
func (h *SnapshotHandler) Import(c *gin.Context) {
	var snap store.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "スナップショットの形式が不正です")
		return
	}

	if err := h.Store.ImportSnapshot(c.Request.Context(), &snap); err != nil {
		writeStoreError(c, err)
		return
	}
	util.Success(c, util.Response{
		"message":      "復元しました",
		"banks":        len(snap.Banks),
		"cards":        len(snap.Cards),
		"transactions": len(snap.Transactions),
	})
}
