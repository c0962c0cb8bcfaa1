package integration

// ---------------------------------------------------------------------------
// Kind represents an external integration
// ---------------------------------------------------------------------------

// Kind identifies an external vendor integration.
type Kind string

const (
	// KindXero represents the Xero accounting API
	KindXero Kind = "XERO"
	// KindShopify represents the Shopify multi-store commerce API
	KindShopify Kind = "SHOPIFY"
	// KindAmazon represents the Amazon Selling Partner API
	KindAmazon Kind = "AMAZON"
	// KindUnleashed represents the Unleashed ERP API
	KindUnleashed Kind = "UNLEASHED"
)

// AllKinds lists every supported integration kind.
func AllKinds() []Kind {
	return []Kind{KindXero, KindShopify, KindAmazon, KindUnleashed}
}

// IsValid returns true if the kind is a supported integration
func (k Kind) IsValid() bool {
	switch k {
	case KindXero, KindShopify, KindAmazon, KindUnleashed:
		return true
	default:
		return false
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Slug returns the lowercase form used in event names and API error codes
// (e.g. "xero" in "xero:sync-completed" and "xero_not_connected").
func (k Kind) Slug() string {
	switch k {
	case KindXero:
		return "xero"
	case KindShopify:
		return "shopify"
	case KindAmazon:
		return "amazon"
	case KindUnleashed:
		return "unleashed"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Domain represents a normalized data domain
// ---------------------------------------------------------------------------

// Domain identifies the business data domain a snapshot belongs to.
type Domain string

const (
	// DomainFinancial covers working capital and cash position data
	DomainFinancial Domain = "financial"
	// DomainOrders covers sales order data
	DomainOrders Domain = "orders"
	// DomainInventory covers stock level and valuation data
	DomainInventory Domain = "inventory"
	// DomainProduction covers manufacturing job and capacity data
	DomainProduction Domain = "production"
)

// IsValid returns true if the domain is recognized
func (d Domain) IsValid() bool {
	switch d {
	case DomainFinancial, DomainOrders, DomainInventory, DomainProduction:
		return true
	default:
		return false
	}
}

// String returns the string representation of Domain
func (d Domain) String() string {
	return string(d)
}

// AllDomains lists every data domain.
func AllDomains() []Domain {
	return []Domain{DomainFinancial, DomainOrders, DomainInventory, DomainProduction}
}

// KindsForDomain lists the integrations able to feed a data domain, primary
// source first. The dashboard uses the primary source's required fields when
// prompting for setup.
func KindsForDomain(domain Domain) []Kind {
	switch domain {
	case DomainFinancial:
		return []Kind{KindXero}
	case DomainOrders:
		return []Kind{KindShopify, KindAmazon}
	case DomainInventory:
		return []Kind{KindUnleashed, KindAmazon}
	case DomainProduction:
		return []Kind{KindUnleashed}
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// ConnectionStatus
// ---------------------------------------------------------------------------

// ConnectionStatus represents the health of a stored integration credential.
type ConnectionStatus string

const (
	// ConnectionNotConfigured indicates no credential has been stored
	ConnectionNotConfigured ConnectionStatus = "NOT_CONFIGURED"
	// ConnectionConnected indicates the credential was accepted by the vendor
	ConnectionConnected ConnectionStatus = "CONNECTED"
	// ConnectionError indicates the vendor rejected the credential
	ConnectionError ConnectionStatus = "ERROR"
)

// IsValid returns true if the status is recognized
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionNotConfigured, ConnectionConnected, ConnectionError:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	return string(s)
}
