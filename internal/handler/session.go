package handler

import (
	"errors"
	"net/http"
	"time"

	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/store"
	"bank-payment-schedule/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionHandler 管理密码会话：设置、解锁、上锁、改密。
// トークンは解錠ごとに振り直されるセッション ID に紐づくため、
// 施錠すると発行済みトークンも全て無効になる。
type SessionHandler struct {
	Manager   *session.Manager
	Store     *store.Store
	JWTSecret string
	TokenTTL  time.Duration
}

func NewSessionHandler(mgr *session.Manager, st *store.Store, jwtSecret string, tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{
		Manager:   mgr,
		Store:     st,
		JWTSecret: jwtSecret,
		TokenTTL:  tokenTTL,
	}
}

// ---------- 请求结构 ----------

type passwordReq struct {
	Password string `json:"password" binding:"required"`
}

type changePasswordReq struct {
	Current string `json:"current_password" binding:"required"`
	Next    string `json:"new_password" binding:"required"`
}

// ---------- エンドポイント ----------

// Setup 初回のパスワード設定。設定後は解錠状態になる。
func (h *SessionHandler) Setup(c *gin.Context) {
	var req passwordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	if err := h.Manager.Setup(req.Password); err != nil {
		var fe *util.FieldError
		var se *session.StateError
		switch {
		case errors.As(err, &fe):
			util.FieldErrorResponse(c, fe)
		case errors.As(err, &se):
			util.Error(c, http.StatusConflict, util.CodeConflict, "パスワードは設定済みです")
		default:
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "パスワードの設定に失敗しました")
		}
		return
	}

	h.issueToken(c)
}

// Unlock パスワード検証に成功すると鍵を導出してトークンを返す。
func (h *SessionHandler) Unlock(c *gin.Context) {
	var req passwordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	if err := h.Manager.Unlock(req.Password); err != nil {
		var se *session.StateError
		switch {
		case errors.Is(err, session.ErrAuthentication):
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "パスワードが違います")
		case errors.As(err, &se):
			util.Error(c, http.StatusConflict, util.CodeConflict, "パスワードが未設定です")
		default:
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "解錠に失敗しました")
		}
		return
	}

	h.issueToken(c)
}

// Lock 鍵を破棄して施錠する。未設定のときだけエラー。
func (h *SessionHandler) Lock(c *gin.Context) {
	if err := h.Manager.Lock(); err != nil {
		var se *session.StateError
		if errors.As(err, &se) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "パスワードが未設定です")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "施錠に失敗しました")
		return
	}
	util.Success(c, util.Response{
		"state": h.Manager.State().String(),
	})
}

// Status 現在のセッション状態。施錠中でも呼べる。
func (h *SessionHandler) Status(c *gin.Context) {
	data := util.Response{
		"state": h.Manager.State().String(),
	}
	if exp, ok := h.Manager.ExpiresAt(); ok {
		data["expires_at"] = exp.Format(time.RFC3339)
	}
	util.Success(c, data)
}

// ChangePassword 旧パスワード検証の上で鍵を再導出し、保存済みの
// 暗号文も全て新しい鍵で書き直す。セッションは解錠のまま、
// トークンだけ振り直す。
func (h *SessionHandler) ChangePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "パラメータが不正です")
		return
	}

	if err := h.Store.ChangePassword(c.Request.Context(), req.Current, req.Next); err != nil {
		var fe *util.FieldError
		var se *session.StateError
		switch {
		case errors.Is(err, session.ErrAuthentication):
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "現在のパスワードが違います")
		case errors.As(err, &fe):
			util.FieldErrorResponse(c, fe)
		case errors.As(err, &se):
			util.Error(c, http.StatusUnauthorized, util.CodeLocked, "解錠された状態で実行してください")
		default:
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "パスワードの変更に失敗しました")
		}
		return
	}

	h.issueToken(c)
}

func (h *SessionHandler) issueToken(c *gin.Context) {
	token, err := util.GenerateToken(h.JWTSecret, h.Manager.SessionID(), h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "トークンの発行に失敗しました")
		return
	}

	data := util.Response{
		"token": token,
		"state": h.Manager.State().String(),
	}
	if exp, ok := h.Manager.ExpiresAt(); ok {
		data["expires_at"] = exp.Format(time.RFC3339)
	}
	util.Success(c, data)
}
