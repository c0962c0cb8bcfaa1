package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestAlertEvaluator_InventoryAlerts(t *testing.T) {
	evaluator := &AlertEvaluator{Clock: fixedClock()}
	tenantID := uuid.New()

	snapshot := NewSnapshot(tenantID, KindUnleashed, InventorySummary{
		TotalValue: decimal.NewFromInt(1700),
		TotalSKUs:  2,
		LowStockItems: []InventoryItem{
			{SKU: "CAP-100", QuantityOnHand: decimal.NewFromInt(45), MinStockLevel: decimal.NewFromInt(100)},
			{SKU: "CAP-200", QuantityOnHand: decimal.Zero, MinStockLevel: decimal.NewFromInt(10)},
		},
		ZeroStockItems: []InventoryItem{
			{SKU: "CAP-200", QuantityOnHand: decimal.Zero, MinStockLevel: decimal.NewFromInt(10)},
		},
	}, time.Now())

	alerts := evaluator.Evaluate(snapshot)

	require.Len(t, alerts, 2)
	assert.Equal(t, AlertKindLowStock, alerts[0].Kind)
	assert.Equal(t, AlertSeverityWarning, alerts[0].Severity)
	assert.Equal(t, AlertKindZeroStock, alerts[1].Kind)
	assert.Equal(t, AlertSeverityCritical, alerts[1].Severity)
	for _, alert := range alerts {
		assert.Equal(t, tenantID, alert.TenantID)
		assert.Equal(t, KindUnleashed, alert.Source)
		assert.Equal(t, DomainInventory, alert.Domain)
		assert.True(t, alert.Open())
	}
}

func TestAlertEvaluator_QualityYieldShortfall(t *testing.T) {
	evaluator := &AlertEvaluator{Clock: fixedClock()}

	// 460 < 500*0.95 = 475, so a shortfall alert is expected.
	snapshot := NewSnapshot(uuid.New(), KindUnleashed, ProductionSummary{
		Jobs: []ProductionJob{
			{JobNumber: "AS-001", Status: "COMPLETED", PlannedQuantity: decimal.NewFromInt(500), ActualQuantity: decimal.NewFromInt(460)},
		},
		MaxCapacity: 4,
	}, time.Now())

	alerts := evaluator.Evaluate(snapshot)

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertKindQualityYieldShortfall, alerts[0].Kind)
	assert.Equal(t, DomainProduction, alerts[0].Domain)
}

func TestAlertEvaluator_CapacityOverload(t *testing.T) {
	evaluator := &AlertEvaluator{Clock: fixedClock()}

	snapshot := NewSnapshot(uuid.New(), KindUnleashed, SummarizeProduction([]ProductionJob{
		{Status: "IN_PROGRESS"}, {Status: "IN_PROGRESS"},
		{Status: "IN_PROGRESS"}, {Status: "IN_PROGRESS"},
	}, 4), time.Now())

	alerts := evaluator.Evaluate(snapshot)

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertKindCapacityOverload, alerts[0].Kind)
}

func TestAlertEvaluator_Idempotent(t *testing.T) {
	evaluator := &AlertEvaluator{Clock: fixedClock()}

	snapshot := NewSnapshot(uuid.New(), KindUnleashed, InventorySummary{
		LowStockItems: []InventoryItem{{SKU: "CAP-100"}},
	}, time.Now())

	first := evaluator.Evaluate(snapshot)
	second := evaluator.Evaluate(snapshot)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Kind, second[0].Kind)
	assert.Equal(t, first[0].Severity, second[0].Severity)
	assert.Equal(t, first[0].Message, second[0].Message)
	assert.Equal(t, first[0].DetectedAt, second[0].DetectedAt)
}

func TestAlertEvaluator_CleanSnapshotYieldsNoAlerts(t *testing.T) {
	evaluator := NewAlertEvaluator()

	snapshot := NewSnapshot(uuid.New(), KindXero, WorkingCapital{
		Revenue: decimal.NewFromInt(100000),
	}, time.Now())

	assert.Empty(t, evaluator.Evaluate(snapshot))
}
