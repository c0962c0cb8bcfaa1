package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed vendor response body (10MB).
const maxResponseSize = 10 * 1024 * 1024

// ErrRequestRejected indicates a non-retryable vendor rejection that is
// neither an auth failure nor a transient fault (e.g. HTTP 400, 404).
var ErrRequestRejected = errors.New("connectors: vendor rejected request")

// ClientConfig holds the shared retry/timeout policy for vendor calls.
// The constants are configurable rather than hard requirements.
type ClientConfig struct {
	// Timeout applies per HTTP call
	Timeout time.Duration
	// MaxAttempts bounds attempts per call, including the first
	MaxAttempts int
	// BackoffBase is the delay before the first retry
	BackoffBase time.Duration
	// BackoffMultiplier scales the delay between successive retries
	BackoffMultiplier int
}

// DefaultClientConfig returns the documented defaults: 10s per call, one
// initial attempt plus up to three retries at 1s/4s/16s backoff.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           10 * time.Second,
		MaxAttempts:       4,
		BackoffBase:       time.Second,
		BackoffMultiplier: 4,
	}
}

// Validate checks the policy is usable.
func (c ClientConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("connectors: timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("connectors: max attempts must be at least 1")
	}
	if c.BackoffBase <= 0 || c.BackoffMultiplier < 1 {
		return errors.New("connectors: invalid backoff settings")
	}
	return nil
}

// apiClient wraps an http.Client with the shared classification and retry
// policy every adapter uses. Auth failures (401/403) surface immediately as
// *integration.AuthError; 429 and 5xx are retried with exponential backoff
// until MaxAttempts, then surface as *integration.TransientError.
type apiClient struct {
	kind       integration.Kind
	httpClient *http.Client
	config     ClientConfig
	logger     *zap.Logger
	// sleep is injectable so tests can skip real backoff waits
	sleep func(ctx context.Context, d time.Duration) error
}

func newAPIClient(kind integration.Kind, config ClientConfig, logger *zap.Logger) *apiClient {
	return &apiClient{
		kind:       kind,
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do executes the request built by build, retrying per policy. build is
// invoked per attempt because request bodies cannot be replayed.
func (c *apiClient) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	body, _, err := c.doHeaders(ctx, build)
	return body, err
}

// doHeaders is do with the response headers preserved, for vendors that
// carry pagination cursors in headers.
func (c *apiClient) doHeaders(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, http.Header, error) {
	var lastErr error
	delay := c.config.BackoffBase

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, nil, &integration.TransientError{Kind: c.kind, Err: err}
			}
			delay *= time.Duration(c.config.BackoffMultiplier)
		}

		req, err := build(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connectors: failed to build %s request: %w", c.kind.Slug(), err)
		}

		body, header, err := c.doOnce(req)
		if err == nil {
			return body, header, nil
		}
		if !integration.IsRetryable(err) {
			return nil, nil, err
		}
		lastErr = err
		c.logger.Warn("vendor call failed, will retry",
			zap.String("integration", c.kind.Slug()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.config.MaxAttempts),
			zap.Error(err),
		)
	}
	return nil, nil, lastErr
}

// doOnce performs a single HTTP exchange and classifies the outcome.
func (c *apiClient) doOnce(req *http.Request) ([]byte, http.Header, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and client timeouts are transient.
		return nil, nil, &integration.TransientError{Kind: c.kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, &integration.TransientError{Kind: c.kind, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, &integration.AuthError{Kind: c.kind, StatusCode: resp.StatusCode, Detail: truncate(string(body), 200)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, nil, &integration.TransientError{
			Kind:       c.kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return nil, nil, fmt.Errorf("%w: %s HTTP %d: %s", ErrRequestRejected, c.kind.Slug(), resp.StatusCode, truncate(string(body), 200))
	}
	return body, resp.Header, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
