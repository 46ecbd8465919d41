package core

import (
	"context"
	"fmt"

	"axiapac.com/biometrics/config"
	dbcore "axiapac.com/biometrics/core"
	"go.uber.org/zap"
)

// Bootstrap migrates the assists tables and wires a Service against the configured
// biometrics API. Shared by the web server, the CLI and the lambda.
func Bootstrap(ctx context.Context, cfg *config.Config, dm *dbcore.DatabaseManager, logger *zap.Logger) (*Service, error) {
	db, err := dm.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// the service outlives ctx
	store := NewStore(db.WithContext(context.Background()))
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate assists tables: %w", err)
	}

	client, err := CreateClient(cfg.Biometrics, logger)
	if err != nil {
		return nil, err
	}

	return NewService(client.Transactions, store, logger, ServiceConfig{
		DefaultLimit:  cfg.Sync.DefaultLimit,
		CatchUpRounds: cfg.Sync.CatchUpRounds,
	}), nil
}
