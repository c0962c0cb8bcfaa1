package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Credential payloads (discriminated union, one shape per Kind)
// ---------------------------------------------------------------------------

// Credential is the interface every vendor credential payload implements.
// Concrete payload shapes are vendor-specific; the resolver validates the
// stored payload against the shape for its kind before any adapter sees it,
// so downstream code never handles a loosely-typed blob.
type Credential interface {
	// CredentialKind returns the integration this credential authenticates
	CredentialKind() Kind
	// Validate returns a *ConfigurationError naming missing fields, or nil
	Validate() error
}

// XeroCredential holds the OAuth2 pair and org binding for the Xero API.
type XeroCredential struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	XeroTenantID string    `json:"xero_tenant_id"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// CredentialKind returns KindXero
func (c *XeroCredential) CredentialKind() Kind { return KindXero }

// TokenExpired reports whether the access token must be refreshed before
// use. A zero expiry or missing access token counts as expired.
func (c *XeroCredential) TokenExpired(now time.Time) bool {
	return c.AccessToken == "" || c.TokenExpiry.IsZero() || !now.Before(c.TokenExpiry)
}

// Validate checks required fields
func (c *XeroCredential) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if c.XeroTenantID == "" {
		missing = append(missing, "xero_tenant_id")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Kind: KindXero, MissingFields: missing}
	}
	return nil
}

// ShopifyStore holds the per-store access token for one Shopify shop.
type ShopifyStore struct {
	// Domain is the myshopify.com shop domain (e.g. "acme-uk.myshopify.com")
	Domain string `json:"domain"`
	// AccessToken is the Admin API access token for this store
	AccessToken string `json:"access_token"`
	// Name is the operator-facing store label
	Name string `json:"name"`
}

// ShopifyCredential holds tokens for every connected store of a tenant.
type ShopifyCredential struct {
	Stores []ShopifyStore `json:"stores"`
}

// CredentialKind returns KindShopify
func (c *ShopifyCredential) CredentialKind() Kind { return KindShopify }

// Validate checks that at least one fully-specified store exists
func (c *ShopifyCredential) Validate() error {
	if len(c.Stores) == 0 {
		return &ConfigurationError{Kind: KindShopify, MissingFields: []string{"stores"}}
	}
	for _, s := range c.Stores {
		var missing []string
		if s.Domain == "" {
			missing = append(missing, "stores[].domain")
		}
		if s.AccessToken == "" {
			missing = append(missing, "stores[].access_token")
		}
		if len(missing) > 0 {
			return &ConfigurationError{Kind: KindShopify, MissingFields: missing}
		}
	}
	return nil
}

// AmazonCredential holds the SP-API OAuth + AWS IAM triple.
type AmazonCredential struct {
	// LWA (Login with Amazon) application credentials
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	// AWS IAM principal used to sign SP-API requests
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	RoleARN            string `json:"role_arn"`
	Region             string `json:"region"`
	MarketplaceID      string `json:"marketplace_id"`
}

// CredentialKind returns KindAmazon
func (c *AmazonCredential) CredentialKind() Kind { return KindAmazon }

// Validate checks required fields
func (c *AmazonCredential) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if c.AWSAccessKeyID == "" {
		missing = append(missing, "aws_access_key_id")
	}
	if c.AWSSecretAccessKey == "" {
		missing = append(missing, "aws_secret_access_key")
	}
	if c.RoleARN == "" {
		missing = append(missing, "role_arn")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.MarketplaceID == "" {
		missing = append(missing, "marketplace_id")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Kind: KindAmazon, MissingFields: missing}
	}
	return nil
}

// UnleashedCredential holds the HMAC API id/key pair for the Unleashed API.
type UnleashedCredential struct {
	APIID  string `json:"api_id"`
	APIKey string `json:"api_key"`
}

// CredentialKind returns KindUnleashed
func (c *UnleashedCredential) CredentialKind() Kind { return KindUnleashed }

// Validate checks required fields
func (c *UnleashedCredential) Validate() error {
	var missing []string
	if c.APIID == "" {
		missing = append(missing, "api_id")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Kind: KindUnleashed, MissingFields: missing}
	}
	return nil
}

// DecodeCredential parses a stored payload into the typed shape for its kind.
// A payload that does not decode or validate yields a *ConfigurationError.
// RequiredFields lists the credential fields an integration needs before it
// can connect. Used to report "everything is missing" when no credential row
// exists at all.
func RequiredFields(kind Kind) []string {
	switch kind {
	case KindXero:
		return []string{"client_id", "client_secret", "refresh_token", "xero_tenant_id"}
	case KindShopify:
		return []string{"stores"}
	case KindAmazon:
		return []string{"client_id", "client_secret", "refresh_token", "aws_access_key_id", "aws_secret_access_key", "role_arn", "region", "marketplace_id"}
	case KindUnleashed:
		return []string{"api_id", "api_key"}
	default:
		return nil
	}
}

func DecodeCredential(kind Kind, payload []byte) (Credential, error) {
	var cred Credential
	switch kind {
	case KindXero:
		cred = &XeroCredential{}
	case KindShopify:
		cred = &ShopifyCredential{}
	case KindAmazon:
		cred = &AmazonCredential{}
	case KindUnleashed:
		cred = &UnleashedCredential{}
	default:
		return nil, ErrInvalidKind
	}
	if err := json.Unmarshal(payload, cred); err != nil {
		return nil, &ConfigurationError{Kind: kind, Reason: "stored payload is not valid JSON for this integration"}
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

// ---------------------------------------------------------------------------
// CredentialRecord and CredentialResult
// ---------------------------------------------------------------------------

// CredentialRecord is the stored form of a tenant's integration credential.
type CredentialRecord struct {
	TenantID        uuid.UUID
	Kind            Kind
	Payload         []byte
	Status          ConnectionStatus
	LastValidatedAt *time.Time
}

// CredentialResult is the outcome of resolving a tenant's credential.
// Exactly one of Credential (CONNECTED) or MissingFields (NOT_CONFIGURED)
// is meaningful; a fake credential is never synthesized.
type CredentialResult struct {
	Status        ConnectionStatus
	Credential    Credential
	MissingFields []string
}

// Connected reports whether a usable credential was resolved.
func (r CredentialResult) Connected() bool {
	return r.Status == ConnectionConnected && r.Credential != nil
}
