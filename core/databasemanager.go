package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// ParseLogLevel maps a config value ("silent", "error", "warn", "info") to a LogLevel.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) gormLevel() logger.LogLevel {
	switch l {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	case LogLevelSilent:
		return logger.Silent
	default:
		return logger.Info
	}
}

type DatabaseManager struct {
	SqlDB    *sql.DB
	LogLevel LogLevel

	once   sync.Once
	gormDB *gorm.DB
	err    error
}

// New creates the global pool (e.g. 10 conns).
// dsn must include the schema and parseTime=true.
func New(dsn string, maxConnection int) (*DatabaseManager, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{SqlDB: sqlDB}, nil
}

// GetDB returns a *gorm.DB over the shared pool, bound to ctx.
// The gorm handle is created on first use with the LogLevel set at that time.
func (dm *DatabaseManager) GetDB(ctx context.Context) (*gorm.DB, error) {
	dm.once.Do(func() {
		dialector := mysql.New(mysql.Config{
			Conn: dm.SqlDB,
		})
		dm.gormDB, dm.err = gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(dm.LogLevel.gormLevel()),
		})
		if dm.err != nil {
			dm.err = fmt.Errorf("failed to open gorm: %w", dm.err)
		}
	})
	if dm.err != nil {
		return nil, dm.err
	}
	return dm.gormDB.WithContext(ctx), nil
}

// Close closes the global pool
func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}

func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := dm.GetDB(ctx)
	if err != nil {
		return err
	}
	return fn(db)
}
