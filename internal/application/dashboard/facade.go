package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Results and errors
// ---------------------------------------------------------------------------

// DataSource labels the freshness of a served snapshot.
const (
	DataSourceLive   = "live"
	DataSourceCached = "cached"
)

// ErrDomainNotEnabled is returned when the tenant's subscription tier does
// not include the requested data domain.
var ErrDomainNotEnabled = errors.New("dashboard: data domain not enabled for tenant tier")

// SetupRequiredError is the explicit "not configured" outcome: no cached
// snapshot exists and no integration feeding the domain has a usable
// credential. It names the primary source's missing fields so the dashboard
// can render a setup prompt instead of fabricated zeros.
type SetupRequiredError struct {
	Kind          integration.Kind
	MissingFields []string
}

func (e *SetupRequiredError) Error() string {
	return fmt.Sprintf("dashboard: %s not connected, missing %v", e.Kind.Slug(), e.MissingFields)
}

// SyncPendingError is returned when a credential is configured but no sync
// has populated the cache yet. Distinct from SetupRequiredError: the user
// has nothing to fix, the data simply has not arrived.
type SyncPendingError struct {
	Kind integration.Kind
}

func (e *SyncPendingError) Error() string {
	return fmt.Sprintf("dashboard: %s connected but no snapshot synced yet", e.Kind.Slug())
}

// QueryResult is one successfully served dashboard panel.
type QueryResult struct {
	Domain     integration.Domain
	Payload    integration.Payload
	DataSource string
	CapturedAt time.Time
}

// ---------------------------------------------------------------------------
// Facade
// ---------------------------------------------------------------------------

// Facade is the synchronous read path behind the dashboard HTTP handlers.
// It only ever reads the snapshot cache; it never triggers a live vendor
// fetch, so reads return immediately regardless of sync health.
type Facade struct {
	tenants     integration.TenantRepository
	credentials integration.CredentialStore
	cache       integration.SnapshotCache
	logger      *zap.Logger
}

// FacadeOption customizes a Facade.
type FacadeOption func(*Facade)

// WithLogger sets the facade logger.
func WithLogger(logger *zap.Logger) FacadeOption {
	return func(f *Facade) { f.logger = logger }
}

// NewFacade creates a dashboard query facade.
func NewFacade(tenants integration.TenantRepository, credentials integration.CredentialStore, cache integration.SnapshotCache, opts ...FacadeOption) *Facade {
	f := &Facade{
		tenants:     tenants,
		credentials: credentials,
		cache:       cache,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get serves the tenant's latest snapshot for a data domain. Outcomes:
//   - QueryResult with dataSource "live" or "cached"
//   - ErrDomainNotEnabled when the tier excludes the domain
//   - *SetupRequiredError when nothing is cached and nothing is configured
//   - *SyncPendingError when configured but never synced
func (f *Facade) Get(ctx context.Context, tenantID uuid.UUID, domain integration.Domain) (*QueryResult, error) {
	if !domain.IsValid() {
		return nil, integration.ErrInvalidDomain
	}

	tenant, err := f.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.Tier.Allows(domain) {
		return nil, ErrDomainNotEnabled
	}

	cached, err := f.cache.Get(ctx, tenantID, domain)
	if err == nil {
		source := DataSourceLive
		if cached.IsStale {
			source = DataSourceCached
		}
		return &QueryResult{
			Domain:     domain,
			Payload:    cached.Snapshot.Payload,
			DataSource: source,
			CapturedAt: cached.Snapshot.CapturedAt,
		}, nil
	}
	if !errors.Is(err, integration.ErrSnapshotNotFound) {
		f.logger.Error("snapshot cache read failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("domain", string(domain)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("dashboard: read %s cache: %w", domain, err)
	}

	return nil, f.classifyMiss(ctx, tenantID, domain)
}

// Overview serves every domain the tenant's tier enables, keyed by domain.
// Domains that are not yet servable are simply absent; the per-domain errors
// are collected so the handler can render setup prompts panel by panel.
func (f *Facade) Overview(ctx context.Context, tenantID uuid.UUID) (map[integration.Domain]*QueryResult, map[integration.Domain]error, error) {
	tenant, err := f.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	results := make(map[integration.Domain]*QueryResult)
	misses := make(map[integration.Domain]error)
	for _, domain := range tenant.Tier.EnabledDomains() {
		result, err := f.Get(ctx, tenantID, domain)
		if err != nil {
			misses[domain] = err
			continue
		}
		results[domain] = result
	}
	return results, misses, nil
}

// classifyMiss decides whether an empty cache means "set up the integration"
// or "wait for the first sync". Any connected source downgrades the miss to
// pending; only a fully unconfigured domain prompts for setup.
func (f *Facade) classifyMiss(ctx context.Context, tenantID uuid.UUID, domain integration.Domain) error {
	sources := integration.KindsForDomain(domain)
	if len(sources) == 0 {
		return integration.ErrInvalidDomain
	}

	for _, kind := range sources {
		record, err := f.credentials.Find(ctx, tenantID, kind)
		if err != nil {
			return fmt.Errorf("dashboard: load %s credential: %w", kind.Slug(), err)
		}
		if record == nil || len(record.Payload) == 0 {
			continue
		}
		if _, err := integration.DecodeCredential(kind, record.Payload); err != nil {
			continue
		}
		return &SyncPendingError{Kind: kind}
	}

	primary := sources[0]
	return &SetupRequiredError{
		Kind:          primary,
		MissingFields: integration.RequiredFields(primary),
	}
}
