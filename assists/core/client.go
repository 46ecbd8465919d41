package core

import (
	"fmt"
	"time"

	v1 "axiapac.com/biometrics/biometrics/v1"
	"axiapac.com/biometrics/config"
	"axiapac.com/biometrics/security"
	"go.uber.org/zap"
)

const serviceTokenLifetime = time.Hour

// CreateClient builds the biometrics API client. A signing secret takes precedence over
// a static token; tokens signed from it are refreshed before they expire.
func CreateClient(cfg config.BiometricsConfig, logger *zap.Logger) (*v1.BiometricsClient, error) {
	opts := v1.Options{
		Token:    cfg.Token,
		Timeout:  cfg.Timeout,
		MaxTries: uint(cfg.MaxRetries) + 1,
		Logger:   logger,
	}
	if cfg.SigningSecret != "" {
		opts.TokenProvider = security.ServiceTokenProvider(security.DefaultServiceIdentity(), cfg.SigningSecret, serviceTokenLifetime)
	}

	client, err := v1.NewBiometricsClient(cfg.Host, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create biometrics client: %w", err)
	}
	return client, nil
}
