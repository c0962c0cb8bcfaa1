package connectors

import "errors"

// AmazonConfig holds the SP-API endpoints and sync window.
type AmazonConfig struct {
	// APIBaseURL is the regional SP-API endpoint
	APIBaseURL string `mapstructure:"api_base_url"`
	// LWATokenURL is the Login with Amazon token endpoint
	LWATokenURL string `mapstructure:"lwa_token_url"`
	// OrderWindowDays bounds how far back one sync pulls orders
	OrderWindowDays int `mapstructure:"order_window_days"`
	// DisableSTS skips role assumption for applications not using an IAM
	// role and for local test servers
	DisableSTS bool `mapstructure:"disable_sts"`
}

// DefaultAmazonConfig returns the North America endpoints and a 30-day
// order window.
func DefaultAmazonConfig() *AmazonConfig {
	return &AmazonConfig{
		APIBaseURL:      "https://sellingpartnerapi-na.amazon.com",
		LWATokenURL:     "https://api.amazon.com/auth/o2/token",
		OrderWindowDays: 30,
	}
}

// Validate checks the configuration.
func (c *AmazonConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("connectors: amazon api_base_url is required")
	}
	if c.LWATokenURL == "" {
		return errors.New("connectors: amazon lwa_token_url is required")
	}
	if c.OrderWindowDays < 1 {
		return errors.New("connectors: amazon order_window_days must be positive")
	}
	return nil
}
