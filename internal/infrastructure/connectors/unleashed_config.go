package connectors

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// UnleashedConfig holds the tenant-independent settings for the Unleashed
// ERP API. Credentials (api id/key) are per tenant and arrive with each sync.
type UnleashedConfig struct {
	// APIBaseURL is the Unleashed REST endpoint
	APIBaseURL string
	// PageSize is the page size for paginated list endpoints
	PageSize int
}

// DefaultUnleashedConfig returns the production endpoint settings.
func DefaultUnleashedConfig() *UnleashedConfig {
	return &UnleashedConfig{
		APIBaseURL: "https://api.unleashedsoftware.com",
		PageSize:   200,
	}
}

// Validate validates the configuration
func (c *UnleashedConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("unleashed: api base url is required")
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		return errors.New("unleashed: page size must be between 1 and 1000")
	}
	return nil
}

// SignUnleashedQuery computes the request signature Unleashed requires:
// base64(HMAC-SHA256(apiKey, queryString)), where queryString is everything
// after the "?" (empty string for requests without parameters). The result
// is sent in the api-auth-signature header alongside api-auth-id.
func SignUnleashedQuery(apiKey, queryString string) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(queryString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
