package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SnapshotSource
// ---------------------------------------------------------------------------

// SnapshotSource marks whether a served snapshot came from a fresh sync or
// from a cache entry past its TTL.
type SnapshotSource string

const (
	// SourceLive indicates the snapshot is within its TTL
	SourceLive SnapshotSource = "LIVE"
	// SourceCachedStale indicates the snapshot is past its TTL but still the
	// last known good value
	SourceCachedStale SnapshotSource = "CACHED_STALE"
)

// ---------------------------------------------------------------------------
// Domain payloads
// ---------------------------------------------------------------------------

// Payload is the vendor-agnostic, domain-shaped product of one successful
// sync. Every payload is produced by adapter normalization; no payload is
// ever fabricated from placeholder values.
type Payload interface {
	// PayloadDomain returns the data domain this payload describes
	PayloadDomain() Domain
}

// WorkingCapital is the financial-position payload normalized from Xero.
// Ratio metrics are zero-guarded: a zero denominator yields 0, never NaN.
type WorkingCapital struct {
	CurrentAssets      decimal.Decimal `json:"current_assets"`
	CurrentLiabilities decimal.Decimal `json:"current_liabilities"`
	AccountsReceivable decimal.Decimal `json:"accounts_receivable"`
	AccountsPayable    decimal.Decimal `json:"accounts_payable"`
	Inventory          decimal.Decimal `json:"inventory"`
	Revenue            decimal.Decimal `json:"revenue"`
	CostOfGoodsSold    decimal.Decimal `json:"cost_of_goods_sold"`
	Currency           string          `json:"currency"`

	// Derived metrics, in days
	DSO                 float64 `json:"dso"`
	DIO                 float64 `json:"dio"`
	DPO                 float64 `json:"dpo"`
	CashConversionCycle float64 `json:"cash_conversion_cycle"`
}

// PayloadDomain returns DomainFinancial
func (WorkingCapital) PayloadDomain() Domain { return DomainFinancial }

// OrdersSummary is the orders payload normalized from Shopify or Amazon.
type OrdersSummary struct {
	TotalOrders     int             `json:"total_orders"`
	OpenOrders      int             `json:"open_orders"`
	FulfilledOrders int             `json:"fulfilled_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	Currency        string          `json:"currency"`
	// ByStore breaks revenue down per Shopify store domain; empty for
	// single-channel integrations.
	ByStore map[string]StoreOrders `json:"by_store,omitempty"`
}

// StoreOrders is the per-store slice of an OrdersSummary.
type StoreOrders struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// PayloadDomain returns DomainOrders
func (OrdersSummary) PayloadDomain() Domain { return DomainOrders }

// InventoryItem is one SKU line inside an InventorySummary.
type InventoryItem struct {
	SKU               string          `json:"sku"`
	Description       string          `json:"description"`
	QuantityOnHand    decimal.Decimal `json:"quantity_on_hand"`
	MinStockLevel     decimal.Decimal `json:"min_stock_level"`
	AverageLandedCost decimal.Decimal `json:"average_landed_cost"`
}

// LowStock reports whether quantity on hand is below the minimum level.
func (i InventoryItem) LowStock() bool {
	return i.QuantityOnHand.LessThan(i.MinStockLevel)
}

// ZeroStock reports whether the item is fully out of stock.
func (i InventoryItem) ZeroStock() bool {
	return i.QuantityOnHand.IsZero()
}

// InventorySummary is the inventory payload normalized from Unleashed or
// Amazon FBA stock data.
type InventorySummary struct {
	// TotalValue is Σ(quantity_on_hand × average_landed_cost) over all SKUs
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalSKUs      int             `json:"total_skus"`
	LowStockItems  []InventoryItem `json:"low_stock_items"`
	ZeroStockItems []InventoryItem `json:"zero_stock_items"`
}

// PayloadDomain returns DomainInventory
func (InventorySummary) PayloadDomain() Domain { return DomainInventory }

// ProductionJob is one assembly/manufacture job inside a ProductionSummary.
type ProductionJob struct {
	JobNumber       string          `json:"job_number"`
	ProductCode     string          `json:"product_code"`
	Status          string          `json:"status"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity"`
	ActualQuantity  decimal.Decimal `json:"actual_quantity"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// ProductionSummary is the production payload normalized from Unleashed
// assembly data.
type ProductionSummary struct {
	ActiveJobs      int             `json:"active_jobs"`
	CompletedJobs   int             `json:"completed_jobs"`
	MaxCapacity     int             `json:"max_capacity"`
	UtilizationRate float64         `json:"utilization_rate"`
	Jobs            []ProductionJob `json:"jobs"`
}

// PayloadDomain returns DomainProduction
func (ProductionSummary) PayloadDomain() Domain { return DomainProduction }

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Snapshot is the latest normalized state for one tenant/domain pair,
// produced by exactly one integration's sync run.
type Snapshot struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	Kind       Kind           `json:"kind"`
	Domain     Domain         `json:"domain"`
	Payload    Payload        `json:"payload"`
	CapturedAt time.Time      `json:"captured_at"`
	Source     SnapshotSource `json:"source"`
}

// NewSnapshot builds a LIVE snapshot for the payload's own domain.
func NewSnapshot(tenantID uuid.UUID, kind Kind, payload Payload, capturedAt time.Time) Snapshot {
	return Snapshot{
		TenantID:   tenantID,
		Kind:       kind,
		Domain:     payload.PayloadDomain(),
		Payload:    payload,
		CapturedAt: capturedAt,
		Source:     SourceLive,
	}
}

// DecodePayload unmarshals a serialized payload back into its concrete type
// for the given domain. Counterpart of DecodeCredential for the cache layer.
func DecodePayload(domain Domain, data []byte) (Payload, error) {
	switch domain {
	case DomainFinancial:
		var p WorkingCapital
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, &NormalizationError{Domain: domain, Detail: err.Error()}
		}
		return p, nil
	case DomainOrders:
		var p OrdersSummary
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, &NormalizationError{Domain: domain, Detail: err.Error()}
		}
		return p, nil
	case DomainInventory:
		var p InventorySummary
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, &NormalizationError{Domain: domain, Detail: err.Error()}
		}
		return p, nil
	case DomainProduction:
		var p ProductionSummary
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, &NormalizationError{Domain: domain, Detail: err.Error()}
		}
		return p, nil
	default:
		return nil, ErrInvalidDomain
	}
}
