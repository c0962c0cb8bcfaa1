package handler

import (
	"context"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/interfaces/http/middleware"
	"github.com/capliquify/backend/internal/interfaces/http/router"
)

// ---------------------------------------------------------------------------
// In-memory collaborators shared by the handler tests
// ---------------------------------------------------------------------------

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*integration.Tenant
}

func (r *fakeTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, integration.ErrTenantNotFound
	}
	return t, nil
}

func (r *fakeTenantRepo) ListActive(_ context.Context) ([]*integration.Tenant, error) {
	out := make([]*integration.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

type fakeCredentialStore struct {
	mu      sync.Mutex
	records map[string]*integration.CredentialRecord
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{records: make(map[string]*integration.CredentialRecord)}
}

func fakeCredKey(tenantID uuid.UUID, kind integration.Kind) string {
	return tenantID.String() + ":" + string(kind)
}

func (s *fakeCredentialStore) put(tenantID uuid.UUID, kind integration.Kind, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[fakeCredKey(tenantID, kind)] = &integration.CredentialRecord{
		TenantID: tenantID,
		Kind:     kind,
		Payload:  payload,
		Status:   integration.ConnectionNotConfigured,
	}
}

func (s *fakeCredentialStore) Find(_ context.Context, tenantID uuid.UUID, kind integration.Kind) (*integration.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[fakeCredKey(tenantID, kind)], nil
}

func (s *fakeCredentialStore) UpdateStatus(_ context.Context, tenantID uuid.UUID, kind integration.Kind, status integration.ConnectionStatus, validatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[fakeCredKey(tenantID, kind)]
	if !ok {
		return integration.ErrNotConfigured
	}
	record.Status = status
	record.LastValidatedAt = &validatedAt
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*integration.CachedSnapshot
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*integration.CachedSnapshot)}
}

func (c *fakeCache) put(snapshot integration.Snapshot, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snapshot.TenantID.String()+":"+string(snapshot.Domain)] = &integration.CachedSnapshot{
		Snapshot: snapshot,
		IsStale:  stale,
	}
}

func (c *fakeCache) Get(_ context.Context, tenantID uuid.UUID, domain integration.Domain) (*integration.CachedSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[tenantID.String()+":"+string(domain)]
	if !ok {
		return nil, integration.ErrSnapshotNotFound
	}
	return entry, nil
}

func (c *fakeCache) Put(_ context.Context, snapshot integration.Snapshot, _ time.Duration) error {
	c.put(snapshot, false)
	return nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*integration.SyncRun
}

func (r *fakeRunRepo) Create(_ context.Context, run *integration.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepo) UpdateTerminal(_ context.Context, _ *integration.SyncRun) error { return nil }

func (r *fakeRunRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]*integration.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.SyncRun
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.runs[i].TenantID == tenantID {
			out = append(out, r.runs[i])
		}
	}
	return out, nil
}

func (r *fakeRunRepo) Prune(_ context.Context, _ uuid.UUID, _ integration.Kind, _ int) error {
	return nil
}

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []*integration.Alert
}

func (r *fakeAlertRepo) FindOpen(_ context.Context, tenantID uuid.UUID, source integration.Kind, domain integration.Domain, kind integration.AlertKind) (*integration.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.TenantID == tenantID && a.Source == source && a.Domain == domain && a.Kind == kind && a.Open() {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertRepo) ListOpenByTenant(_ context.Context, tenantID uuid.UUID) ([]*integration.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.Alert
	for _, a := range r.alerts {
		if a.TenantID == tenantID && a.Open() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListOpenBySource(_ context.Context, tenantID uuid.UUID, source integration.Kind, domain integration.Domain) ([]*integration.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.Alert
	for _, a := range r.alerts {
		if a.TenantID == tenantID && a.Source == source && a.Domain == domain && a.Open() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) Save(_ context.Context, alert *integration.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.alerts {
		if existing.ID == alert.ID {
			r.alerts[i] = alert
			return nil
		}
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

type fakePublisher struct{}

func (fakePublisher) Emit(_ integration.Event) {}

type fakeConnector struct {
	kind    integration.Kind
	domains []integration.Domain
	syncFn  func(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error)
}

func (c *fakeConnector) Kind() integration.Kind        { return c.kind }
func (c *fakeConnector) Domains() []integration.Domain { return c.domains }

func (c *fakeConnector) Sync(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error) {
	return c.syncFn(ctx, tenantID, credential)
}

type fakeRegistry struct {
	connectors map[integration.Kind]integration.Connector
}

func (r *fakeRegistry) Get(kind integration.Kind) (integration.Connector, error) {
	c, ok := r.connectors[kind]
	if !ok {
		return nil, integration.ErrInvalidKind
	}
	return c, nil
}

func (r *fakeRegistry) List() []integration.Connector {
	out := make([]integration.Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

func setupRouter(registrars ...router.RouteRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r := router.NewRouter(engine, router.WithMiddleware(middleware.TenantMiddleware()))
	for _, registrar := range registrars {
		r.Register(registrar)
	}
	r.Setup()
	return engine
}

func doRequest(engine *gin.Engine, method, path string, tenantID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tenantID != uuid.Nil {
		req.Header.Set(middleware.TenantHeaderKey, tenantID.String())
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}
