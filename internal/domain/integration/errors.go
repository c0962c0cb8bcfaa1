package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrNotConfigured     = errors.New("integration: not configured")
	ErrInvalidKind       = errors.New("integration: invalid integration kind")
	ErrInvalidDomain     = errors.New("integration: invalid data domain")
	ErrSnapshotNotFound  = errors.New("integration: snapshot not found")
	ErrSyncAlreadyActive = errors.New("integration: sync already running for tenant and integration")
	ErrTenantNotFound    = errors.New("integration: tenant not found")
)

// ---------------------------------------------------------------------------
// Typed sync error taxonomy
// ---------------------------------------------------------------------------

// ConfigurationError indicates a missing or malformed credential. It is never
// retried; the dashboard surfaces it as a setup prompt naming the missing fields.
type ConfigurationError struct {
	Kind          Kind
	MissingFields []string
	Reason        string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("integration: %s configuration invalid: %s", e.Kind.Slug(), e.Reason)
	}
	return fmt.Sprintf("integration: %s not configured, missing %v", e.Kind.Slug(), e.MissingFields)
}

// AuthError indicates the vendor rejected the credential (401/403). It is not
// retried within the run and marks the stored credential status ERROR.
type AuthError struct {
	Kind       Kind
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("integration: %s authentication failed (HTTP %d): %s", e.Kind.Slug(), e.StatusCode, e.Detail)
}

// TransientError indicates a timeout, 5xx, or rate-limit response. Adapters
// retry it with backoff; once retries are exhausted the run is marked FAILED
// and the stale cache entry is preserved.
type TransientError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("integration: %s transient failure (HTTP %d): %v", e.Kind.Slug(), e.StatusCode, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is matching.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// NormalizationError indicates a vendor response that does not match any
// documented shape. The run is marked FAILED and no partial snapshot is cached.
type NormalizationError struct {
	Kind   Kind
	Domain Domain
	Detail string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("integration: %s %s response shape unexpected: %s", e.Kind.Slug(), e.Domain, e.Detail)
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

// IsRetryable reports whether err should be retried within the same sync attempt.
func IsRetryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsAuthError reports whether err is a vendor credential rejection.
func IsAuthError(err error) bool {
	var auth *AuthError
	return errors.As(err, &auth)
}

// IsConfigurationError reports whether err is a setup problem rather than a
// sync failure.
func IsConfigurationError(err error) bool {
	var conf *ConfigurationError
	return errors.As(err, &conf)
}
