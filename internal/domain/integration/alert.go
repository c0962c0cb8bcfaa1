package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Alert enums
// ---------------------------------------------------------------------------

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// IsValid returns true if the severity is recognized
func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	default:
		return false
	}
}

// AlertKind identifies the condition that triggered an alert.
type AlertKind string

const (
	AlertKindLowStock              AlertKind = "LOW_STOCK"
	AlertKindZeroStock             AlertKind = "ZERO_STOCK"
	AlertKindQualityYieldShortfall AlertKind = "QUALITY_YIELD_SHORTFALL"
	AlertKindCapacityOverload      AlertKind = "CAPACITY_OVERLOAD"
	AlertKindSyncFailure           AlertKind = "SYNC_FAILURE"
)

// IsValid returns true if the kind is recognized
func (k AlertKind) IsValid() bool {
	switch k {
	case AlertKindLowStock, AlertKindZeroStock, AlertKindQualityYieldShortfall,
		AlertKindCapacityOverload, AlertKindSyncFailure:
		return true
	default:
		return false
	}
}

// String returns the string representation of AlertKind
func (k AlertKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Alert
// ---------------------------------------------------------------------------

// Alert records one threshold breach detected after a sync. An open alert of
// the same tenant+source+domain+kind is updated in place on re-detection; it
// is soft-resolved when a later evaluation by the same source no longer
// reports the condition. Source matters because several integrations can
// feed one domain: Amazon's inventory sync must not clear an alert that
// Unleashed's stock levels raised.
type Alert struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Source     Kind
	Domain     Domain
	Kind       AlertKind
	Severity   AlertSeverity
	Message    string
	DetectedAt time.Time
	ResolvedAt *time.Time
}

// NewAlert creates an open alert raised by the given source integration.
func NewAlert(tenantID uuid.UUID, source Kind, domain Domain, kind AlertKind, severity AlertSeverity, message string, detectedAt time.Time) *Alert {
	return &Alert{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Source:     source,
		Domain:     domain,
		Kind:       kind,
		Severity:   severity,
		Message:    message,
		DetectedAt: detectedAt,
	}
}

// Open reports whether the alert is still unresolved.
func (a *Alert) Open() bool {
	return a.ResolvedAt == nil
}

// Resolve soft-closes the alert.
func (a *Alert) Resolve(at time.Time) {
	resolved := at
	a.ResolvedAt = &resolved
}
