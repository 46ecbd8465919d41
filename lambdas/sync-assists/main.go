package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	assists "axiapac.com/biometrics/assists/core"
	"axiapac.com/biometrics/config"
	"axiapac.com/biometrics/core"
	"axiapac.com/biometrics/infrastructure/communication"
	"axiapac.com/biometrics/infrastructure/filesystem"
	"axiapac.com/biometrics/lambdas/common"
	"axiapac.com/biometrics/utils"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

const defaultSchema = "assists"

type SyncEvent struct {
	// StartDate is yyyy-MM-dd or ISO 8601. Empty means LookbackDays before today.
	StartDate    string `json:"startDate"`
	LookbackDays *int   `json:"lookbackDays"`
	Limit        int    `json:"limit"`
	Env          string `json:"env"`
	Database     string `json:"database"`
}

// parseEvent accepts either a plain SyncEvent or a Bedrock agent invocation.
func parseEvent(raw []byte) (SyncEvent, *common.BedrockEvent, error) {
	var event SyncEvent
	if bedrock, ok := common.ParseBedrockEvent(raw); ok {
		event.StartDate = bedrock.GetParameter("startDate")
		event.Limit = bedrock.GetInt("limit")
		event.Database = bedrock.GetParameter("database")
		if env := bedrock.GetParameter("environment"); env != "" {
			event.Env = env
		} else {
			event.Env = bedrock.GetParameter("env")
		}
		if days := bedrock.GetParameter("lookbackDays"); days != "" {
			event.LookbackDays = utils.Ptr(bedrock.GetInt("lookbackDays"))
		}
		return event, bedrock, nil
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return event, nil, fmt.Errorf("failed to unmarshal sync event: %w", err)
	}
	return event, nil, nil
}

func (e SyncEvent) startDate(now time.Time, defaultLookback int) (time.Time, error) {
	if e.StartDate != "" {
		t, err := utils.ParseISOTime(e.StartDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid startDate: %w", err)
		}
		return t.UTC(), nil
	}
	lookback := defaultLookback
	if e.LookbackDays != nil {
		lookback = *e.LookbackDays
	}
	return utils.StartOfDayUTC(now).AddDate(0, 0, -lookback), nil
}

// resolveDSN prefers DSN from the environment and falls back to the SSM databases parameter.
func resolveDSN(ctx context.Context, event SyncEvent) (string, error) {
	if dsn := os.Getenv("DSN"); dsn != "" {
		return dsn, nil
	}
	client, err := common.NewParameterGetter(ctx)
	if err != nil {
		return "", err
	}
	schema := event.Database
	if schema == "" {
		schema = defaultSchema
	}
	return common.ResolveDSN(ctx, client, event.Env, schema)
}

func SyncAssists(ctx context.Context, event SyncEvent) (*assists.CatchUpStats, error) {
	dsn, err := resolveDSN(ctx, event)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadWithOverrides(os.Getenv("BIOMETRICS_CONFIG"), map[string]any{"database.dsn": dsn})
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	notifier := communication.NewNotifier(cfg.Slack)

	stats, err := catchUp(ctx, cfg, event, logger)
	if err != nil {
		logger.Error("Attendance sync failed", zap.Error(err))
		if nerr := notifier.Error(ctx, fmt.Sprintf(":warning: Attendance sync failed: %v", err)); nerr != nil {
			logger.Warn("Failed to notify Slack", zap.Error(nerr))
		}
		return stats, err
	}

	if stats.PagesFetched > 0 {
		message := fmt.Sprintf("Attendance sync: %d page(s) fetched, %d punch(es) stored, %d/%d remote pages pending (%s epoch %d)",
			stats.PagesFetched, stats.RecordsStored, stats.PendingPages, stats.TotalApiPages, stats.Branch, stats.StatusID)
		if nerr := notifier.Info(ctx, message); nerr != nil {
			logger.Warn("Failed to notify Slack", zap.Error(nerr))
		}
	}
	return stats, nil
}

func catchUp(ctx context.Context, cfg *config.Config, event SyncEvent, logger *zap.Logger) (*assists.CatchUpStats, error) {
	dm, err := core.New(cfg.Database.DSN, cfg.Database.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dm.Close()
	dm.LogLevel = core.ParseLogLevel(cfg.Database.LogLevel)

	service, err := assists.Bootstrap(ctx, cfg, dm, logger)
	if err != nil {
		return nil, err
	}

	startDate, err := event.startDate(time.Now(), cfg.Sync.LookbackDays)
	if err != nil {
		return nil, err
	}
	stats, err := service.CatchUp(ctx, startDate, event.Limit)
	if err != nil {
		return stats, err
	}

	if cfg.Export.Enabled() {
		fs, err := filesystem.NewS3Filesystem(ctx, cfg.Export.Bucket)
		if err != nil {
			return stats, err
		}
		if _, _, err := service.ArchiveExport(ctx, fs, cfg.Export.Prefix, startDate, time.Now().UTC()); err != nil {
			return stats, fmt.Errorf("failed to archive export: %w", err)
		}
	}
	return stats, nil
}

func HandleRequest(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	event, bedrock, err := parseEvent(raw)
	if err != nil {
		return nil, err
	}

	stats, err := SyncAssists(ctx, event)
	if err != nil {
		return nil, err
	}

	if bedrock != nil && bedrock.Function != "" {
		return common.NewBedrockResponse(bedrock.ActionGroup, bedrock.Function, stats), nil
	}
	return stats, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	event := SyncEvent{Env: "dev"}
	if len(os.Args) > 1 {
		event.StartDate = os.Args[1]
	}
	stats, err := SyncAssists(context.Background(), event)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	resJson, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
}
