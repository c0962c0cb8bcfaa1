package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantRepository reads tenant provisioning data. The sync layer never
// writes tenants.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	ListActive(ctx context.Context) ([]*Tenant, error)
}

// CredentialStore is the Tenant & Credential Store collaborator. The sync
// layer reads credential payloads and updates only the connection status
// bookkeeping fields, never the payload itself.
type CredentialStore interface {
	// Find returns the stored record, or nil when none exists
	Find(ctx context.Context, tenantID uuid.UUID, kind Kind) (*CredentialRecord, error)
	// UpdateStatus records the outcome of the latest credential use
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, kind Kind, status ConnectionStatus, validatedAt time.Time) error
}

// SyncRunRepository persists the bounded sync audit trail.
type SyncRunRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	// UpdateTerminal writes the terminal state of a run
	UpdateTerminal(ctx context.Context, run *SyncRun) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*SyncRun, error)
	// Prune deletes all but the newest keep runs per tenant+kind
	Prune(ctx context.Context, tenantID uuid.UUID, kind Kind, keep int) error
}

// AlertRepository persists alerts and supports the orchestrator's
// open-alert diffing. Diffing is scoped to the raising integration so
// sibling sources feeding the same domain stay independent.
type AlertRepository interface {
	// FindOpen returns the open alert for tenant+source+domain+kind, or nil
	FindOpen(ctx context.Context, tenantID uuid.UUID, source Kind, domain Domain, kind AlertKind) (*Alert, error)
	// ListOpenByTenant returns all open alerts for a tenant, newest first
	ListOpenByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Alert, error)
	// ListOpenBySource returns open alerts one integration raised on a domain
	ListOpenBySource(ctx context.Context, tenantID uuid.UUID, source Kind, domain Domain) ([]*Alert, error)
	Save(ctx context.Context, alert *Alert) error
}

// CachedSnapshot is a snapshot read back from the cache layer together with
// its read-time staleness flag.
type CachedSnapshot struct {
	Snapshot Snapshot
	IsStale  bool
}

// SnapshotCache stores the latest normalized snapshot per tenant/domain.
// Expiry flags entries stale at read time rather than evicting them, so the
// last known good value stays servable after a failed sync.
type SnapshotCache interface {
	// Get returns the cached snapshot, or ErrSnapshotNotFound
	Get(ctx context.Context, tenantID uuid.UUID, domain Domain) (*CachedSnapshot, error)
	// Put stores a snapshot with the given TTL
	Put(ctx context.Context, snapshot Snapshot, ttl time.Duration) error
}
