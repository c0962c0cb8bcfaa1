package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds orchestrator tuning knobs.
type Config struct {
	// SnapshotTTL is how long a cached snapshot is served as LIVE
	SnapshotTTL time.Duration
	// HistoryKeep bounds the sync-run audit trail per tenant+integration
	HistoryKeep int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SnapshotTTL: 20 * time.Minute,
		HistoryKeep: 50,
	}
}

// Validate checks the configuration for sane values.
func (c Config) Validate() error {
	if c.SnapshotTTL <= 0 {
		return fmt.Errorf("sync: snapshot TTL must be positive, got %v", c.SnapshotTTL)
	}
	if c.HistoryKeep < 1 {
		return fmt.Errorf("sync: history keep must be at least 1, got %d", c.HistoryKeep)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Event payloads
// ---------------------------------------------------------------------------

type syncEventPayload struct {
	Kind        string   `json:"kind"`
	Domains     []string `json:"domains,omitempty"`
	RecordCount int      `json:"recordCount,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type alertEventPayload struct {
	Domain     string    `json:"domain"`
	Kind       string    `json:"kind"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detectedAt"`
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

type flightKey struct {
	tenantID uuid.UUID
	kind     integration.Kind
}

// Orchestrator drives one sync run end to end: credential resolution,
// adapter dispatch, snapshot caching, alert reconciliation, and event
// emission. Runs are single-flight per tenant+integration; a second
// trigger while one is in flight returns ErrSyncAlreadyActive.
type Orchestrator struct {
	registry    integration.ConnectorRegistry
	tenants     integration.TenantRepository
	resolver    *CredentialResolver
	credentials integration.CredentialStore
	runs        integration.SyncRunRepository
	alerts      integration.AlertRepository
	cache       integration.SnapshotCache
	publisher   integration.Publisher
	evaluator   *integration.AlertEvaluator
	config      Config
	logger      *zap.Logger
	clock       func() time.Time

	mu       stdsync.Mutex
	inFlight map[flightKey]struct{}
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConfig overrides the default orchestrator configuration.
func WithConfig(cfg Config) OrchestratorOption {
	return func(o *Orchestrator) { o.config = cfg }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithEvaluator overrides the alert evaluator.
func WithEvaluator(evaluator *integration.AlertEvaluator) OrchestratorOption {
	return func(o *Orchestrator) { o.evaluator = evaluator }
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(
	registry integration.ConnectorRegistry,
	tenants integration.TenantRepository,
	credentials integration.CredentialStore,
	runs integration.SyncRunRepository,
	alerts integration.AlertRepository,
	cache integration.SnapshotCache,
	publisher integration.Publisher,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		tenants:     tenants,
		resolver:    NewCredentialResolver(credentials),
		credentials: credentials,
		runs:        runs,
		alerts:      alerts,
		cache:       cache,
		publisher:   publisher,
		evaluator:   integration.NewAlertEvaluator(),
		config:      DefaultConfig(),
		logger:      zap.NewNop(),
		clock:       time.Now,
		inFlight:    make(map[flightKey]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SyncNow executes one sync run for the tenant's integration. It returns
// ErrSyncAlreadyActive when a run for the same tenant+integration is in
// flight, and a ConfigurationError (with no run recorded) when the
// credential is missing or incomplete.
func (o *Orchestrator) SyncNow(ctx context.Context, tenantID uuid.UUID, kind integration.Kind) (*integration.SyncRun, error) {
	connector, err := o.registry.Get(kind)
	if err != nil {
		return nil, err
	}

	key := flightKey{tenantID: tenantID, kind: kind}
	if !o.acquire(key) {
		return nil, integration.ErrSyncAlreadyActive
	}
	defer o.release(key)

	result, err := o.resolver.Resolve(ctx, tenantID, kind)
	if err != nil {
		return nil, fmt.Errorf("sync: resolve %s credential: %w", kind.Slug(), err)
	}
	if !result.Connected() {
		return nil, &integration.ConfigurationError{Kind: kind, MissingFields: result.MissingFields}
	}

	run := integration.NewSyncRun(tenantID, kind, o.clock())
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("sync: record run: %w", err)
	}

	o.logger.Info("sync started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("integration", kind.Slug()),
		zap.String("run_id", run.ID.String()))
	o.emit(integration.SyncStartedEvent(kind), tenantID, syncEventPayload{Kind: kind.Slug()})

	snapshots, err := connector.Sync(ctx, tenantID, result.Credential)
	if err != nil {
		return run, o.finishFailed(ctx, run, connector, err)
	}
	return run, o.finishSucceeded(ctx, run, kind, snapshots)
}

// SyncTenant runs every integration the tenant has configured. Individual
// failures are logged and do not block the remaining integrations.
func (o *Orchestrator) SyncTenant(ctx context.Context, tenant *integration.Tenant) {
	for _, kind := range tenant.Integrations {
		if _, err := o.SyncNow(ctx, tenant.ID, kind); err != nil {
			switch {
			case errors.Is(err, integration.ErrSyncAlreadyActive):
				o.logger.Debug("sync skipped, already in flight",
					zap.String("tenant_id", tenant.ID.String()),
					zap.String("integration", kind.Slug()))
			case integration.IsConfigurationError(err):
				o.logger.Debug("sync skipped, integration not configured",
					zap.String("tenant_id", tenant.ID.String()),
					zap.String("integration", kind.Slug()))
			default:
				o.logger.Warn("sync failed",
					zap.String("tenant_id", tenant.ID.String()),
					zap.String("integration", kind.Slug()),
					zap.Error(err))
			}
		}
	}
}

// SyncAll runs every active tenant's configured integrations once.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	tenants, err := o.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("sync: list active tenants: %w", err)
	}
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.SyncTenant(ctx, tenant)
	}
	return nil
}

// Runs returns the tenant's most recent sync runs, newest first.
func (o *Orchestrator) Runs(ctx context.Context, tenantID uuid.UUID, limit int) ([]*integration.SyncRun, error) {
	return o.runs.ListByTenant(ctx, tenantID, limit)
}

// OpenAlerts returns the tenant's currently open alerts, newest first.
func (o *Orchestrator) OpenAlerts(ctx context.Context, tenantID uuid.UUID) ([]*integration.Alert, error) {
	return o.alerts.ListOpenByTenant(ctx, tenantID)
}

// ConnectionReport describes one integration's credential health for the
// status endpoint.
type ConnectionReport struct {
	Kind            integration.Kind             `json:"kind"`
	Status          integration.ConnectionStatus `json:"status"`
	MissingFields   []string                     `json:"missingFields,omitempty"`
	LastValidatedAt *time.Time                   `json:"lastValidatedAt,omitempty"`
}

// Status reports credential health for every supported integration.
func (o *Orchestrator) Status(ctx context.Context, tenantID uuid.UUID) ([]ConnectionReport, error) {
	reports := make([]ConnectionReport, 0, len(integration.AllKinds()))
	for _, kind := range integration.AllKinds() {
		record, err := o.credentials.Find(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("sync: load %s credential: %w", kind.Slug(), err)
		}
		report := ConnectionReport{Kind: kind, Status: integration.ConnectionNotConfigured}
		if record == nil {
			report.MissingFields = integration.RequiredFields(kind)
		} else {
			report.Status = record.Status
			report.LastValidatedAt = record.LastValidatedAt
			if record.Status == integration.ConnectionNotConfigured {
				result, err := o.resolver.Resolve(ctx, tenantID, kind)
				if err != nil {
					return nil, err
				}
				report.MissingFields = result.MissingFields
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ---------------------------------------------------------------------------
// Run completion
// ---------------------------------------------------------------------------

func (o *Orchestrator) finishSucceeded(ctx context.Context, run *integration.SyncRun, kind integration.Kind, snapshots []integration.Snapshot) error {
	domains := make([]integration.Domain, 0, len(snapshots))
	recordCount := 0
	for _, snapshot := range snapshots {
		if err := o.cache.Put(ctx, snapshot, o.config.SnapshotTTL); err != nil {
			return o.finishFailedStore(ctx, run, fmt.Errorf("sync: cache %s snapshot: %w", snapshot.Domain, err))
		}
		domains = append(domains, snapshot.Domain)
		recordCount += snapshotRecordCount(snapshot)

		if err := o.reconcileAlerts(ctx, run.TenantID, kind, snapshot); err != nil {
			o.logger.Warn("alert reconciliation failed",
				zap.String("tenant_id", run.TenantID.String()),
				zap.String("domain", string(snapshot.Domain)),
				zap.Error(err))
		}
	}

	run.Complete(o.clock(), domains, recordCount)
	if err := o.runs.UpdateTerminal(ctx, run); err != nil {
		return fmt.Errorf("sync: finalize run: %w", err)
	}
	if err := o.credentials.UpdateStatus(ctx, run.TenantID, kind, integration.ConnectionConnected, o.clock()); err != nil {
		o.logger.Warn("credential status update failed",
			zap.String("tenant_id", run.TenantID.String()),
			zap.String("integration", kind.Slug()),
			zap.Error(err))
	}
	if err := o.runs.Prune(ctx, run.TenantID, kind, o.config.HistoryKeep); err != nil {
		o.logger.Warn("run history prune failed",
			zap.String("tenant_id", run.TenantID.String()),
			zap.String("integration", kind.Slug()),
			zap.Error(err))
	}

	o.logger.Info("sync completed",
		zap.String("tenant_id", run.TenantID.String()),
		zap.String("integration", kind.Slug()),
		zap.Int("record_count", recordCount),
		zap.Duration("duration", run.Duration()))

	o.emit(integration.SyncCompletedEvent(kind), run.TenantID, syncEventPayload{
		Kind:        kind.Slug(),
		Domains:     domainStrings(domains),
		RecordCount: recordCount,
	})
	o.emit(integration.EventTypeRefreshRequired, run.TenantID, syncEventPayload{Kind: kind.Slug()})
	return nil
}

func (o *Orchestrator) finishFailed(ctx context.Context, run *integration.SyncRun, connector integration.Connector, syncErr error) error {
	kind := connector.Kind()
	run.Fail(o.clock(), syncErr.Error())
	if err := o.runs.UpdateTerminal(ctx, run); err != nil {
		o.logger.Error("run finalization failed",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}

	if integration.IsAuthError(syncErr) {
		if err := o.credentials.UpdateStatus(ctx, run.TenantID, kind, integration.ConnectionError, o.clock()); err != nil {
			o.logger.Warn("credential status update failed",
				zap.String("tenant_id", run.TenantID.String()),
				zap.String("integration", kind.Slug()),
				zap.Error(err))
		}
	}

	// Sync-failure alerts live on the connector's primary domain so the
	// dashboard can pin them to the affected panel.
	domain := connector.Domains()[0]
	message := fmt.Sprintf("%s sync failed: %s", kind.Slug(), syncErr.Error())
	if err := o.raiseAlert(ctx, run.TenantID, kind, domain, integration.AlertKindSyncFailure, integration.AlertSeverityCritical, message); err != nil {
		o.logger.Warn("sync-failure alert could not be recorded",
			zap.String("tenant_id", run.TenantID.String()),
			zap.Error(err))
	}

	o.logger.Error("sync failed",
		zap.String("tenant_id", run.TenantID.String()),
		zap.String("integration", kind.Slug()),
		zap.Error(syncErr))
	o.emit(integration.SyncErrorEvent(kind), run.TenantID, syncEventPayload{
		Kind:  kind.Slug(),
		Error: syncErr.Error(),
	})
	return syncErr
}

// finishFailedStore handles a cache write failure after the adapter itself
// succeeded: the run is failed but no sync-failure alert is raised, since
// the vendor connection is healthy.
func (o *Orchestrator) finishFailedStore(ctx context.Context, run *integration.SyncRun, storeErr error) error {
	run.Fail(o.clock(), storeErr.Error())
	if err := o.runs.UpdateTerminal(ctx, run); err != nil {
		o.logger.Error("run finalization failed",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
	o.emit(integration.SyncErrorEvent(run.Kind), run.TenantID, syncEventPayload{
		Kind:  run.Kind.Slug(),
		Error: storeErr.Error(),
	})
	return storeErr
}

// ---------------------------------------------------------------------------
// Alert reconciliation
// ---------------------------------------------------------------------------

// reconcileAlerts diffs the evaluator's output against the open alerts this
// integration raised on the snapshot's domain: re-detected conditions update
// the open alert in place, new conditions open an alert and emit its event,
// and open alerts no longer detected are soft-resolved. A successful sync
// therefore also clears the integration's own sync-failure alert. Resolution
// never touches a sibling source's alerts: Amazon's inventory feed carries
// no stock minimums, so its clean snapshot says nothing about the low-stock
// condition Unleashed detected.
func (o *Orchestrator) reconcileAlerts(ctx context.Context, tenantID uuid.UUID, kind integration.Kind, snapshot integration.Snapshot) error {
	detected := o.evaluator.Evaluate(snapshot)

	detectedKinds := make(map[integration.AlertKind]bool, len(detected))
	for _, alert := range detected {
		detectedKinds[alert.Kind] = true
		if err := o.raiseAlert(ctx, tenantID, kind, alert.Domain, alert.Kind, alert.Severity, alert.Message); err != nil {
			return err
		}
	}

	open, err := o.alerts.ListOpenBySource(ctx, tenantID, kind, snapshot.Domain)
	if err != nil {
		return err
	}
	for _, alert := range open {
		if detectedKinds[alert.Kind] {
			continue
		}
		alert.Resolve(o.clock())
		if err := o.alerts.Save(ctx, alert); err != nil {
			return err
		}
		o.logger.Info("alert resolved",
			zap.String("tenant_id", tenantID.String()),
			zap.String("domain", string(alert.Domain)),
			zap.String("alert_kind", alert.Kind.String()))
	}
	return nil
}

// raiseAlert upserts an open alert for tenant+source+domain+kind. Only a
// newly opened alert emits a realtime event; re-detection refreshes the
// stored message and severity silently.
func (o *Orchestrator) raiseAlert(ctx context.Context, tenantID uuid.UUID, kind integration.Kind, domain integration.Domain, alertKind integration.AlertKind, severity integration.AlertSeverity, message string) error {
	existing, err := o.alerts.FindOpen(ctx, tenantID, kind, domain, alertKind)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Severity = severity
		existing.Message = message
		return o.alerts.Save(ctx, existing)
	}

	alert := integration.NewAlert(tenantID, kind, domain, alertKind, severity, message, o.clock())
	if err := o.alerts.Save(ctx, alert); err != nil {
		return err
	}
	o.emit(integration.AlertEvent(kind, alertKind), tenantID, alertEventPayload{
		Domain:     string(alert.Domain),
		Kind:       alert.Kind.String(),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		DetectedAt: alert.DetectedAt,
	})
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (o *Orchestrator) acquire(key flightKey) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, active := o.inFlight[key]; active {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

func (o *Orchestrator) release(key flightKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}

func (o *Orchestrator) emit(eventType integration.EventType, tenantID uuid.UUID, payload any) {
	o.publisher.Emit(integration.Event{
		Type:      eventType,
		TenantID:  tenantID,
		Payload:   payload,
		Timestamp: o.clock(),
	})
}

func snapshotRecordCount(snapshot integration.Snapshot) int {
	switch payload := snapshot.Payload.(type) {
	case integration.WorkingCapital:
		return 1
	case integration.OrdersSummary:
		return payload.TotalOrders
	case integration.InventorySummary:
		return payload.TotalSKUs
	case integration.ProductionSummary:
		return len(payload.Jobs)
	default:
		return 0
	}
}

func domainStrings(domains []integration.Domain) []string {
	out := make([]string, len(domains))
	for i, d := range domains {
		out[i] = string(d)
	}
	return out
}
