package middleware

import (
	"bytes"
	"io"

	"bank-payment-schedule/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditMiddleware 記録対象は変更系リクエストのみ。path と action は
// ストア側でセッション鍵により暗号化される。GET は記録しない。
func AuditMiddleware(st *store.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			c.Next()
			return
		}

		// リクエストボディを読んでから差し戻す
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		// 失敗したリクエストは記録しない
		if c.Writer.Status() >= 400 {
			return
		}

		path := c.Request.URL.Path
		action := method + " " + path
		// パスワードを含みうるエンドポイントのボディは残さない
		if len(bodyBytes) > 0 && len(bodyBytes) < 2000 && !sensitivePath(path) {
			action += " " + string(bodyBytes)
		}

		if err := st.WriteAudit(c.Request.Context(), method, path, action, c.ClientIP(), c.Request.UserAgent()); err != nil {
			// 監査の失敗でリクエスト自体は失敗させない
			log.Warn().Err(err).Str("path", path).Msg("audit write failed")
		}
	}
}

func sensitivePath(path string) bool {
	switch path {
	case "/api/session/setup", "/api/session/unlock", "/api/session/password":
		return true
	}
	return false
}
