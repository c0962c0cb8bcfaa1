package connectors

import "errors"

// ShopifyConfig holds the Shopify Admin API settings shared across stores.
type ShopifyConfig struct {
	// APIVersion is the Admin REST API version segment
	APIVersion string `mapstructure:"api_version"`
	// PageSize is the orders page size, capped at 250 by Shopify
	PageSize int `mapstructure:"page_size"`
	// Scheme is overridable so tests can run against plain-HTTP servers
	Scheme string `mapstructure:"scheme"`
}

// DefaultShopifyConfig returns production defaults.
func DefaultShopifyConfig() *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion: "2024-01",
		PageSize:   250,
		Scheme:     "https",
	}
}

// Validate checks the configuration.
func (c *ShopifyConfig) Validate() error {
	if c.APIVersion == "" {
		return errors.New("connectors: shopify api_version is required")
	}
	if c.PageSize < 1 || c.PageSize > 250 {
		return errors.New("connectors: shopify page_size must be between 1 and 250")
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return errors.New("connectors: shopify scheme must be http or https")
	}
	return nil
}
