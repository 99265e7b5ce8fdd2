package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 通用返回结构里的 data 使用 map
type Response map[string]interface{}

// 业务错误码
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeLocked       = 40102 // セッション未解錠・期限切れ
	CodeNotFound     = 40401
	CodeConflict     = 40901 // 参照されているため削除不可など
	CodeServerErr    = 50001
	CodeMigration    = 50002
)

// Success 統一成功レスポンス
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error 統一エラーレスポンス
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// FieldErrorResponse エラー箇所をフィールド単位で返す
func FieldErrorResponse(c *gin.Context, fe *FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    CodeInvalidParam,
		"message": fe.Reason,
		"field":   fe.Field,
	})
}
