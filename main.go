package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"bank-payment-schedule/internal/config"
	"bank-payment-schedule/internal/logger"
	"bank-payment-schedule/internal/router"
	"bank-payment-schedule/internal/session"
	"bank-payment-schedule/internal/store"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.New(cfg.Log.Level)

	// ensure data directory exists
	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		zl.Fatal().Err(err).Msg("create data dir")
	}

	// init database
	db, err := store.InitDB(cfg.Database)
	if err != nil {
		zl.Fatal().Err(err).Msg("init database")
	}
	if err := store.AutoMigrate(db); err != nil {
		zl.Fatal().Err(err).Msg("migrate database")
	}

	// session manager: holds the password-derived key in memory only
	mgr, err := session.NewManager(
		store.NewCredentialStore(db),
		cfg.Security.KDFIterations,
		cfg.Security.BcryptCost,
		time.Duration(cfg.Security.SessionMinutes)*time.Minute,
	)
	if err != nil {
		zl.Fatal().Err(err).Msg("init session manager")
	}

	st, err := store.Open(db, mgr, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("open store")
	}
	zl.Info().Str("state", mgr.State().String()).Msg("store opened")

	// setup router
	r := router.SetupRouter(cfg, st, mgr, zl)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	zl.Info().Str("addr", addr).Msg("server listening")
	if err := r.Run(addr); err != nil {
		zl.Fatal().Err(err).Msg("run server")
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
