package common

import (
	"context"
	"time"

	assists "axiapac.com/biometrics/assists/core"
	"axiapac.com/biometrics/core"
	"axiapac.com/biometrics/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	Dm      *core.DatabaseManager
	Service *assists.Service
	Logger  *zap.Logger
}

// ParseDate accepts yyyy-MM-dd or any ISO 8601 timestamp and returns it in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := utils.ParseISOTime(value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Ping checks the database connection; a handler without a DatabaseManager is healthy.
func (h *Handler) Ping(ctx context.Context) error {
	if h.Dm == nil {
		return nil
	}
	return h.Dm.Exec(ctx, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}
