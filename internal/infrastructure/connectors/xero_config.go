package connectors

import "errors"

// XeroConfig holds the Xero API endpoints. Both are overridable so tests
// can point the adapter at a local server.
type XeroConfig struct {
	// APIBaseURL is the accounting API root
	APIBaseURL string `mapstructure:"api_base_url"`
	// TokenURL is the OAuth2 token endpoint used for refresh grants
	TokenURL string `mapstructure:"token_url"`
}

// DefaultXeroConfig returns the production Xero endpoints.
func DefaultXeroConfig() *XeroConfig {
	return &XeroConfig{
		APIBaseURL: "https://api.xero.com/api.xro/2.0",
		TokenURL:   "https://identity.xero.com/connect/token",
	}
}

// Validate checks the configuration.
func (c *XeroConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("connectors: xero api_base_url is required")
	}
	if c.TokenURL == "" {
		return errors.New("connectors: xero token_url is required")
	}
	return nil
}
