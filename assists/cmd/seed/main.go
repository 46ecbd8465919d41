package main

import (
	"context"
	"flag"
	"log"
	"os"

	assists "axiapac.com/biometrics/assists/core"
	"axiapac.com/biometrics/config"
	"axiapac.com/biometrics/core"
	"go.uber.org/zap"
)

// seed creates or updates the assists tables without touching the remote API.
func main() {
	configPath := flag.String("config", os.Getenv("BIOMETRICS_CONFIG"), "path to a yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	dm, err := core.New(cfg.Database.DSN, cfg.Database.MaxConnections)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dm.Close()
	dm.LogLevel = core.LogLevelInfo

	ctx := context.Background()
	db, err := dm.GetDB(ctx)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := assists.NewStore(db).Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate assists tables", zap.Error(err))
	}
	logger.Info("Assists tables are up to date")
}
