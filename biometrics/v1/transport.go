package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"axiapac.com/biometrics/metrics"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

type Response struct {
	StatusCode int
	Data       []byte
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status code %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Transport handles low-level HTTP, retries and authentication
type Transport struct {
	BaseURL       string
	AuthToken     string
	TokenProvider func() (string, error)
	UserAgent     string
	HTTPClient    *http.Client
	MaxTries      uint
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// NewTransport creates a transport with base URL and auth
func NewTransport(baseURL, token string) *Transport {
	return &Transport{
		BaseURL:       baseURL,
		AuthToken:     token,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		MaxTries:      1,
		RetryInterval: 500 * time.Millisecond,
		Logger:        zap.NewNop(),
	}
}

// helper: build full URL with query params
func (t *Transport) buildURL(path string, query map[string]string) (string, error) {
	u, err := url.Parse(t.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid url %s%s: %w", t.BaseURL, path, err)
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *Transport) token() (string, error) {
	if t.TokenProvider != nil {
		return t.TokenProvider()
	}
	return t.AuthToken, nil
}

// Get sends a GET request, retrying network failures, 429 and 5xx answers
// with exponential backoff. Other 4xx answers fail immediately.
func (t *Transport) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	fullURL, err := t.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	operation := func() (*Response, error) {
		return t.do(ctx, http.MethodGet, path, fullURL)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryInterval

	tries := t.MaxTries
	if tries == 0 {
		tries = 1
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.APIRequestRetries.Inc()
			t.Logger.Warn("Retrying biometrics request",
				zap.String("path", path),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
}

func (t *Transport) do(ctx context.Context, method, path, fullURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	token, err := t.token()
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to obtain auth token: %w", err))
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Data:       data,
	}, nil
}
