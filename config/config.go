package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Biometrics BiometricsConfig `mapstructure:"biometrics"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Export     ExportConfig     `mapstructure:"export"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	// SigningSecret is the base64 HMAC key for bearer tokens on /api routes.
	// Empty disables authentication.
	SigningSecret string `mapstructure:"signing_secret" validate:"omitempty,base64"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn" validate:"required"`
	MaxConnections int    `mapstructure:"max_connections" validate:"min=1"`
	LogLevel       string `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

// BiometricsConfig contains settings for the remote attendance API
type BiometricsConfig struct {
	Host          string        `mapstructure:"host" validate:"required,url"`
	Token         string        `mapstructure:"token"`
	SigningSecret string        `mapstructure:"signing_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" validate:"min=0"`
}

// SyncConfig contains synchronization scheduling settings
type SyncConfig struct {
	DefaultLimit  int           `mapstructure:"default_limit" validate:"min=1"`
	Interval      time.Duration `mapstructure:"interval"`
	LookbackDays  int           `mapstructure:"lookback_days" validate:"min=0"`
	CatchUpRounds int           `mapstructure:"catchup_rounds" validate:"min=1"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SlackConfig contains notification settings
type SlackConfig struct {
	Token          string `mapstructure:"token"`
	InfoChannelID  string `mapstructure:"info_channel"`
	ErrorChannelID string `mapstructure:"error_channel"`
}

func (s SlackConfig) Enabled() bool {
	return s.Token != ""
}

// ExportConfig controls the xlsx archive uploaded after scheduled syncs
type ExportConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

func (e ExportConfig) Enabled() bool {
	return e.Bucket != ""
}

// Load reads configuration from an optional yaml file and the environment.
// Environment variables use the upper-cased key with "." replaced by "_",
// e.g. BIOMETRICS_HOST or SYNC_DEFAULT_LIMIT.
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, nil)
}

// LoadWithOverrides is Load with values that take precedence over the file and the
// environment, keyed like the yaml file (e.g. "database.dsn").
func LoadWithOverrides(configPath string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.signing_secret", "")

	// Database defaults
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.log_level", "error")

	// Biometrics API defaults
	v.SetDefault("biometrics.host", "")
	v.SetDefault("biometrics.token", "")
	v.SetDefault("biometrics.signing_secret", "")
	v.SetDefault("biometrics.timeout", "30s")
	v.SetDefault("biometrics.max_retries", 3)

	// Sync defaults
	v.SetDefault("sync.default_limit", 50)
	v.SetDefault("sync.interval", "0s")
	v.SetDefault("sync.lookback_days", 1)
	v.SetDefault("sync.catchup_rounds", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stdout")

	// Slack defaults
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.info_channel", "")
	v.SetDefault("slack.error_channel", "")

	// Export defaults
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "assists")
}

// the deployed lambdas and containers still export these names
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"database.dsn":          {"DATABASE_DSN", "DSN"},
		"server.signing_secret": {"SERVER_SIGNING_SECRET", "AXIAPAC_SIGNING_SECRET"},
		"slack.token":           {"SLACK_TOKEN", "SLACK_BOT_TOKEN"},
		"slack.info_channel":    {"SLACK_INFO_CHANNEL"},
		"slack.error_channel":   {"SLACK_ERROR_CHANNEL"},
		"export.bucket":         {"EXPORT_BUCKET", "ASSISTS_EXPORT_BUCKET"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func validate(config *Config) error {
	return validator.New().Struct(config)
}
