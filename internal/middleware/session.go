package middleware

import (
	"net/http"
	"strings"
	"time"

	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionMiddleware 校验 JWT 并核对会话。トークンが指すセッション ID が
// 現在の解錠セッションと一致しない限り通さないので、施錠や期限切れで
// 発行済みトークンは即座に無効になる。
func SessionMiddleware(jwtSecret string, mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		// 1) Header: Authorization: Bearer xxx
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = parts[1]
			}
		}

		// 2) クエリ ?token=xxx（ダウンロードなど Header を付けられない場面用）
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		// 3) Cookie bps_token
		if tokenStr == "" {
			if cookie, err := c.Cookie("bps_token"); err == nil {
				tokenStr = cookie
			}
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未認証です")
			c.Abort()
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "トークンが無効です。解錠し直してください")
			c.Abort()
			return
		}

		// 施錠・期限切れ・別セッションのトークンはここで弾く
		current := mgr.SessionID()
		if current == "" || claims.SessionID != current {
			util.Error(c, http.StatusUnauthorized, util.CodeLocked, "セッションが施錠されています。パスワードで解錠してください")
			c.Abort()
			return
		}

		c.Next()
	}
}
