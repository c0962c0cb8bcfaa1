package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capliquify/backend/internal/domain/integration"
)

// TenantModel maps the tenants table. The sync layer reads this table but
// never writes it; provisioning happens upstream.
type TenantModel struct {
	BaseModel
	Name        string `gorm:"size:255;not null"`
	Tier        string `gorm:"size:32;not null"`
	MaxCapacity int    `gorm:"not null;default:0"`
	Active      bool   `gorm:"not null;default:true;index"`
}

// TableName specifies the table name
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the model to a domain tenant. Configured integrations
// are derived from the credentials table, not stored here.
func (m *TenantModel) ToDomain(integrations []integration.Kind) *integration.Tenant {
	return &integration.Tenant{
		ID:           m.ID,
		Name:         m.Name,
		Tier:         integration.SubscriptionTier(m.Tier),
		Integrations: integrations,
		MaxCapacity:  m.MaxCapacity,
	}
}

// CredentialModel maps the integration_credentials table. Payload holds the
// kind-specific credential JSON; the sync layer updates only the status
// bookkeeping columns.
type CredentialModel struct {
	BaseModel
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_credentials_tenant_kind,unique"`
	Kind            string     `gorm:"size:32;not null;index:idx_credentials_tenant_kind,unique"`
	Payload         []byte     `gorm:"type:jsonb"`
	Status          string     `gorm:"size:32;not null;default:'NOT_CONFIGURED'"`
	LastValidatedAt *time.Time `gorm:""`
}

// TableName specifies the table name
func (CredentialModel) TableName() string {
	return "integration_credentials"
}

// ToDomain converts the model to a domain credential record
func (m *CredentialModel) ToDomain() *integration.CredentialRecord {
	return &integration.CredentialRecord{
		TenantID:        m.TenantID,
		Kind:            integration.Kind(m.Kind),
		Payload:         m.Payload,
		Status:          integration.ConnectionStatus(m.Status),
		LastValidatedAt: m.LastValidatedAt,
	}
}

// SyncRunModel maps the sync_runs audit table.
type SyncRunModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_runs_tenant_kind"`
	Kind        string     `gorm:"size:32;not null;index:idx_sync_runs_tenant_kind"`
	Domains     string     `gorm:"size:255"`
	Status      string     `gorm:"size:16;not null"`
	StartedAt   time.Time  `gorm:"not null;index"`
	FinishedAt  *time.Time `gorm:""`
	ErrorDetail string     `gorm:"type:text"`
	RecordCount int        `gorm:"not null;default:0"`
}

// TableName specifies the table name
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the model to a domain sync run
func (m *SyncRunModel) ToDomain() *integration.SyncRun {
	run := &integration.SyncRun{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Kind:        integration.Kind(m.Kind),
		Status:      integration.SyncRunStatus(m.Status),
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		ErrorDetail: m.ErrorDetail,
		RecordCount: m.RecordCount,
	}
	if m.Domains != "" {
		for _, d := range strings.Split(m.Domains, ",") {
			run.Domains = append(run.Domains, integration.Domain(d))
		}
	}
	return run
}

// SyncRunModelFromDomain converts a domain sync run to its model
func SyncRunModelFromDomain(run *integration.SyncRun) *SyncRunModel {
	domains := make([]string, len(run.Domains))
	for i, d := range run.Domains {
		domains[i] = string(d)
	}
	return &SyncRunModel{
		ID:          run.ID,
		TenantID:    run.TenantID,
		Kind:        string(run.Kind),
		Domains:     strings.Join(domains, ","),
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		ErrorDetail: run.ErrorDetail,
		RecordCount: run.RecordCount,
	}
}

// AlertModel maps the alerts table. Open alerts have a NULL resolved_at.
// Source is the integration that raised the alert; the orchestrator's
// diffing is scoped to it.
type AlertModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_alerts_tenant_open"`
	Source     string     `gorm:"size:32;not null"`
	Domain     string     `gorm:"size:32;not null"`
	Kind       string     `gorm:"size:64;not null"`
	Severity   string     `gorm:"size:16;not null"`
	Message    string     `gorm:"type:text"`
	DetectedAt time.Time  `gorm:"not null"`
	ResolvedAt *time.Time `gorm:"index:idx_alerts_tenant_open"`
}

// TableName specifies the table name
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts the model to a domain alert
func (m *AlertModel) ToDomain() *integration.Alert {
	return &integration.Alert{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Source:     integration.Kind(m.Source),
		Domain:     integration.Domain(m.Domain),
		Kind:       integration.AlertKind(m.Kind),
		Severity:   integration.AlertSeverity(m.Severity),
		Message:    m.Message,
		DetectedAt: m.DetectedAt,
		ResolvedAt: m.ResolvedAt,
	}
}

// AlertModelFromDomain converts a domain alert to its model
func AlertModelFromDomain(alert *integration.Alert) *AlertModel {
	return &AlertModel{
		ID:         alert.ID,
		TenantID:   alert.TenantID,
		Source:     string(alert.Source),
		Domain:     string(alert.Domain),
		Kind:       string(alert.Kind),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		DetectedAt: alert.DetectedAt,
		ResolvedAt: alert.ResolvedAt,
	}
}
