package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertEvaluator inspects normalized snapshots for threshold breaches.
// Evaluate is a pure function of the snapshot: the same snapshot always
// yields the same alert set, and deduplication against previously open
// alerts is the orchestrator's job.
type AlertEvaluator struct {
	// Clock supplies detection timestamps; injectable for tests.
	Clock func() time.Time
}

// NewAlertEvaluator creates an evaluator using the wall clock.
func NewAlertEvaluator() *AlertEvaluator {
	return &AlertEvaluator{Clock: time.Now}
}

// Evaluate returns the alerts the snapshot currently justifies.
func (e *AlertEvaluator) Evaluate(snapshot Snapshot) []*Alert {
	now := e.Clock()
	switch payload := snapshot.Payload.(type) {
	case InventorySummary:
		return e.evaluateInventory(snapshot.TenantID, snapshot.Kind, payload, now)
	case ProductionSummary:
		return e.evaluateProduction(snapshot.TenantID, snapshot.Kind, payload, now)
	default:
		return nil
	}
}

func (e *AlertEvaluator) evaluateInventory(tenantID uuid.UUID, source Kind, inv InventorySummary, now time.Time) []*Alert {
	var alerts []*Alert
	if n := len(inv.LowStockItems); n > 0 {
		alerts = append(alerts, NewAlert(tenantID, source, DomainInventory, AlertKindLowStock, AlertSeverityWarning,
			fmt.Sprintf("%d item(s) below minimum stock level", n), now))
	}
	if n := len(inv.ZeroStockItems); n > 0 {
		alerts = append(alerts, NewAlert(tenantID, source, DomainInventory, AlertKindZeroStock, AlertSeverityCritical,
			fmt.Sprintf("%d item(s) fully out of stock", n), now))
	}
	return alerts
}

func (e *AlertEvaluator) evaluateProduction(tenantID uuid.UUID, source Kind, prod ProductionSummary, now time.Time) []*Alert {
	var alerts []*Alert
	shortfalls := 0
	for _, job := range prod.Jobs {
		if job.Status == "COMPLETED" && YieldShortfall(job) {
			shortfalls++
		}
	}
	if shortfalls > 0 {
		alerts = append(alerts, NewAlert(tenantID, source, DomainProduction, AlertKindQualityYieldShortfall, AlertSeverityWarning,
			fmt.Sprintf("%d completed job(s) below 95%% of planned quantity", shortfalls), now))
	}
	if prod.UtilizationRate >= 100 {
		alerts = append(alerts, NewAlert(tenantID, source, DomainProduction, AlertKindCapacityOverload, AlertSeverityWarning,
			fmt.Sprintf("production at %.0f%% of capacity (%d lines)", prod.UtilizationRate, prod.MaxCapacity), now))
	}
	return alerts
}
