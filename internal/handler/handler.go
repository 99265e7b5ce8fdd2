package handler

import (
	"errors"
	"net/http"
	"time"

	"bank-payment-schedule/internal/schedule"
	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// writeStoreError は store / session 層のエラーを統一レスポンスに写像する。
// 各ハンドラの末尾で一度だけ呼ぶ。
func writeStoreError(c *gin.Context, err error) {
	var (
		fieldErr *util.FieldError
		ruleErr  *schedule.RuleError
		refErr   *store.ReferenceError
		stateErr *session.StateError
		snapErr  *store.SnapshotError
	)
	switch {
	case errors.As(err, &fieldErr):
		util.FieldErrorResponse(c, fieldErr)
	case errors.As(err, &ruleErr):
		util.FieldErrorResponse(c, &util.FieldError{Field: ruleErr.Field, Reason: ruleErr.Reason})
	case errors.Is(err, store.ErrNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "レコードが見つかりません")
	case errors.As(err, &refErr):
		util.Error(c, http.StatusConflict, util.CodeConflict, refErr.Error())
	case errors.As(err, &stateErr):
		util.Error(c, http.StatusUnauthorized, util.CodeLocked, "セッションが施錠されています。パスワードで解錠してください")
	case errors.As(err, &snapErr):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, snapErr.Error())
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "サーバ内部エラー")
	}
}

// parseYearMonth は ?month=YYYY-MM を解釈する。未指定なら ok=false。
func parseYearMonth(c *gin.Context) (int, time.Month, bool, error) {
	monthStr := c.Query("month")
	if monthStr == "" {
		return 0, 0, false, nil
	}
	t, err := time.Parse("2006-01", monthStr)
	if err != nil {
		return 0, 0, false, &util.FieldError{Field: "month", Reason: "must be YYYY-MM"}
	}
	return t.Year(), t.Month(), true, nil
}
