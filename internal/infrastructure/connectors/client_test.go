package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

func newTestClient(t *testing.T) *apiClient {
	t.Helper()
	c := newAPIClient(integration.KindUnleashed, DefaultClientConfig(), zap.NewNop())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func getRequest(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestAPIClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := newTestClient(t).do(context.Background(), getRequest(server.URL))

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIClientExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t).do(context.Background(), getRequest(server.URL))

	require.Error(t, err)
	assert.True(t, integration.IsRetryable(err))
	assert.Equal(t, int32(4), calls.Load(), "one initial attempt plus three retries")
}

func TestAPIClientDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t).do(context.Background(), getRequest(server.URL))

	require.Error(t, err)
	assert.True(t, integration.IsAuthError(err))
	assert.Equal(t, int32(1), calls.Load(), "auth failures must not be retried")
}

func TestAPIClientRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(t).do(context.Background(), getRequest(server.URL))

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIClientRejectsBadRequestsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(t).do(context.Background(), getRequest(server.URL))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIClientBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	c := newAPIClient(integration.KindXero, DefaultClientConfig(), zap.NewNop())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := c.do(context.Background(), getRequest(server.URL))

	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second, 16 * time.Second}, delays)
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *ClientConfig) {}},
		{name: "zero timeout", mutate: func(c *ClientConfig) { c.Timeout = 0 }, wantErr: true},
		{name: "zero attempts", mutate: func(c *ClientConfig) { c.MaxAttempts = 0 }, wantErr: true},
		{name: "zero backoff", mutate: func(c *ClientConfig) { c.BackoffBase = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
