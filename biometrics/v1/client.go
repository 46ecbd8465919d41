package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"
)

// Options configures a BiometricsClient. Zero values are filled from the default tags.
type Options struct {
	Token         string
	TokenProvider func() (string, error)
	Timeout       time.Duration `default:"30s"`
	MaxTries      uint          `default:"4"`
	RetryInterval time.Duration `default:"500ms"`
	UserAgent     string        `default:"axiapac-biometrics/1.0"`
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

type BiometricsClient struct {
	Transport    *Transport
	Transactions *TransactionEndpoint
}

// NewBiometricsClient initializes the API client
func NewBiometricsClient(baseURL string, opts Options) (*BiometricsClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("biometrics base url is required")
	}
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("failed to apply client defaults: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = opts.Timeout

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Transport{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		AuthToken:     opts.Token,
		TokenProvider: opts.TokenProvider,
		UserAgent:     opts.UserAgent,
		HTTPClient:    httpClient,
		MaxTries:      opts.MaxTries,
		RetryInterval: opts.RetryInterval,
		Logger:        logger,
	}
	return &BiometricsClient{
		Transport:    t,
		Transactions: &TransactionEndpoint{transport: t},
	}, nil
}
