package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"gopkg.in/yaml.v3"
)

// DatabasesParameter is the SSM parameter holding the yaml list of database servers.
const DatabasesParameter = "databases"

type DBEntry struct {
	Name     string `yaml:"name" json:"name"`
	Host     string `yaml:"host" json:"host"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// GetDSN builds a go-sql-driver DSN for the schema. Hosts without a port use 3306.
func (db DBEntry) GetDSN(dbname string) string {
	host := db.Host
	if !strings.Contains(host, ":") {
		host = host + ":3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", db.Username, db.Password, host, dbname)
}

// ParameterGetter is the part of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func NewParameterGetter(ctx context.Context) (ParameterGetter, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// LoadDatabases reads the databases parameter and indexes the entries by lower-cased name.
func LoadDatabases(ctx context.Context, client ParameterGetter) (map[string]DBEntry, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(DatabasesParameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameter %s: %w", DatabasesParameter, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s is empty", DatabasesParameter)
	}

	return ParseDatabases(*out.Parameter.Value)
}

func ParseDatabases(value string) (map[string]DBEntry, error) {
	var entries []DBEntry
	if err := yaml.Unmarshal([]byte(value), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal databases: %w", err)
	}

	result := make(map[string]DBEntry, len(entries))
	for _, entry := range entries {
		result[strings.ToLower(entry.Name)] = entry
	}
	return result, nil
}

// ResolveDSN finds the server for env and returns the DSN for schema.
func ResolveDSN(ctx context.Context, client ParameterGetter, env, schema string) (string, error) {
	env = strings.ToLower(env)
	if env == "" {
		return "", fmt.Errorf("environment (env) is required")
	}
	dbs, err := LoadDatabases(ctx, client)
	if err != nil {
		return "", err
	}
	entry, ok := dbs[env]
	if !ok {
		return "", fmt.Errorf("environment '%s' not found in parameter store", env)
	}
	return entry.GetDSN(schema), nil
}
