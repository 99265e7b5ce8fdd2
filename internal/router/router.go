package router

import (
	"time"

	"bank-payment-schedule/internal/config"
	"bank-payment-schedule/internal/handler"
	"bank-payment-schedule/internal/middleware"
	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter configures the Gin engine and mounts all API routes.
func SetupRouter(cfg *config.Config, st *store.Store, mgr *session.Manager, log zerolog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	tokenTTL := time.Duration(cfg.JWT.ExpireMinutes) * time.Minute

	// セッション操作（解錠前に呼べる）
	sessionHandler := handler.NewSessionHandler(mgr, st, jwtSecret, tokenTTL)
	api.POST("/session/setup", sessionHandler.Setup)
	api.POST("/session/unlock", sessionHandler.Unlock)
	api.GET("/session/status", sessionHandler.Status)

	// カレンダーは鍵に依存しないので認証の外
	calendarHandler := handler.NewCalendarHandler()
	api.GET("/calendar/grid", calendarHandler.MonthGrid)

	// 解錠済みセッションが必要な接口
	protected := api.Group("")
	protected.Use(
		middleware.SessionMiddleware(jwtSecret, mgr),
		middleware.AuditMiddleware(st, log),
	)

	protected.POST("/session/lock", sessionHandler.Lock)
	protected.POST("/session/password", sessionHandler.ChangePassword)

	bankHandler := handler.NewBankHandler(st)
	protected.POST("/banks", bankHandler.Create)
	protected.GET("/banks", bankHandler.List)
	protected.GET("/banks/:id", bankHandler.Get)
	protected.PUT("/banks/:id", bankHandler.Update)
	protected.DELETE("/banks/:id", bankHandler.Delete)

	cardHandler := handler.NewCardHandler(st)
	protected.POST("/cards", cardHandler.Create)
	protected.GET("/cards", cardHandler.List)
	protected.GET("/cards/:id", cardHandler.Get)
	protected.PUT("/cards/:id", cardHandler.Update)
	protected.DELETE("/cards/:id", cardHandler.Delete)

	txHandler := handler.NewTransactionHandler(st)
	protected.POST("/transactions", txHandler.Create)
	protected.GET("/transactions", txHandler.List)
	protected.GET("/transactions/:id", txHandler.Get)
	protected.PUT("/transactions/:id", txHandler.Update)
	protected.DELETE("/transactions/:id", txHandler.Delete)

	scheduleHandler := handler.NewScheduleHandler(st)
	protected.GET("/schedule/monthly", scheduleHandler.Monthly)
	protected.POST("/schedule/preview", scheduleHandler.Preview)

	snapshotHandler := handler.NewSnapshotHandler(st)
	protected.GET("/snapshot/export", snapshotHandler.Export)
	protected.POST("/snapshot/import", snapshotHandler.Import)

	exportHandler := handler.NewExportHandler(st)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	logHandler := handler.NewLogHandler(st)
	protected.GET("/logs", logHandler.List)

	return r
}
