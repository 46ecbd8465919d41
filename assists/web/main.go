package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	assists "axiapac.com/biometrics/assists/core"
	common "axiapac.com/biometrics/assists/web/common"
	handlers "axiapac.com/biometrics/assists/web/handlers/assists"
	"axiapac.com/biometrics/config"
	"axiapac.com/biometrics/core"
	"axiapac.com/biometrics/web/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

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
	dm.LogLevel = core.ParseLogLevel(cfg.Database.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := assists.Bootstrap(ctx, cfg, dm, logger)
	if err != nil {
		logger.Fatal("Failed to start assists service", zap.Error(err))
	}
	service.StartPeriodicSync(cfg.Sync.Interval, cfg.Sync.LookbackDays)
	defer service.Stop()

	base := common.Handler{Dm: dm, Service: service, Logger: logger}

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		if err := base.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := r.Group("/api/assists/v1.0")
	if cfg.Server.SigningSecret != "" {
		jwtSecret, err := base64.StdEncoding.DecodeString(cfg.Server.SigningSecret)
		if err != nil {
			logger.Fatal("Failed to decode JWT secret", zap.Error(err))
		}
		protected.Use(middlewares.Authentication(jwtSecret))
	} else {
		logger.Warn("Server signing secret is empty, API routes are unauthenticated")
	}
	handlers.Register(protected, base)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting assists server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down assists server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
