package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	assists "axiapac.com/biometrics/assists/core"
	"axiapac.com/biometrics/config"
	"axiapac.com/biometrics/core"
	"axiapac.com/biometrics/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("BIOMETRICS_CONFIG"), "path to a yaml config file")
	dateStr := flag.String("date", "", "Start date (YYYY-MM-DD). Defaults to sync.lookback_days before today.")
	limit := flag.Int("limit", 0, "Remote page size. Defaults to sync.default_limit.")
	page := flag.Int("page", 0, "Synchronize once up to this page instead of catching up.")
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

	startDate := utils.StartOfDayUTC(time.Now()).AddDate(0, 0, -cfg.Sync.LookbackDays)
	if *dateStr != "" {
		parsed, err := utils.ParseISOTime(*dateStr)
		if err != nil {
			logger.Fatal("Invalid date", zap.Error(err))
		}
		startDate = *parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dm, err := core.New(cfg.Database.DSN, cfg.Database.MaxConnections)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dm.Close()
	dm.LogLevel = core.ParseLogLevel(cfg.Database.LogLevel)

	service, err := assists.Bootstrap(ctx, cfg, dm, logger)
	if err != nil {
		logger.Fatal("Failed to start assists service", zap.Error(err))
	}

	var result any
	if *page > 0 {
		result, err = service.Synchronize(ctx, assists.SyncParams{StartDate: startDate, Page: *page, Limit: *limit})
	} else {
		result, err = service.CatchUp(ctx, startDate, *limit)
	}
	if err != nil {
		logger.Fatal("Attendance sync failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
