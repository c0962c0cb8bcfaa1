package integration

import "github.com/google/uuid"

// ---------------------------------------------------------------------------
// SubscriptionTier
// ---------------------------------------------------------------------------

// SubscriptionTier controls which data domains a tenant's dashboard exposes.
type SubscriptionTier string

const (
	// TierStarter enables financial and orders domains only
	TierStarter SubscriptionTier = "STARTER"
	// TierGrowth adds inventory
	TierGrowth SubscriptionTier = "GROWTH"
	// TierManufacturing enables all domains including production
	TierManufacturing SubscriptionTier = "MANUFACTURING"
)

// IsValid returns true if the tier is recognized
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierStarter, TierGrowth, TierManufacturing:
		return true
	default:
		return false
	}
}

// EnabledDomains returns the data domains available on this tier.
func (t SubscriptionTier) EnabledDomains() []Domain {
	switch t {
	case TierStarter:
		return []Domain{DomainFinancial, DomainOrders}
	case TierGrowth:
		return []Domain{DomainFinancial, DomainOrders, DomainInventory}
	default:
		return AllDomains()
	}
}

// Allows reports whether this tier exposes the given domain.
func (t SubscriptionTier) Allows(domain Domain) bool {
	for _, d := range t.EnabledDomains() {
		if d == domain {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Tenant
// ---------------------------------------------------------------------------

// Tenant is the owning partition for every other entity in the sync layer.
// The sync layer reads tenants but never mutates them.
type Tenant struct {
	ID           uuid.UUID
	Name         string
	Tier         SubscriptionTier
	Integrations []Kind
	// MaxCapacity is the configured number of concurrent production lines;
	// zero means DefaultMaxCapacity.
	MaxCapacity int
}

// HasIntegration reports whether the tenant has the integration configured.
func (t *Tenant) HasIntegration(kind Kind) bool {
	for _, k := range t.Integrations {
		if k == kind {
			return true
		}
	}
	return false
}
