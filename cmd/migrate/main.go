package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/qa-dashboard/engine/pkg/config"
	"github.com/qa-dashboard/engine/pkg/database"
	"github.com/qa-dashboard/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.StoreConfigured() {
		log.Fatal("no document store configured, set STORE_DATABASE_URL or DATABASE_URL")
	}

	db, err := database.Open(context.Background(), database.Options{
		Driver: cfg.StoreDriver,
		DSN:    cfg.DatabaseURL,
		Logger: log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
