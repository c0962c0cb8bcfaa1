package integration

import "github.com/shopspring/decimal"

// daysPerYear is the divisor used by the working capital day-ratio formulas.
const daysPerYear = 365

// DefaultMaxCapacity is the default number of concurrent production lines
// used for utilization when a tenant has not configured its own capacity.
const DefaultMaxCapacity = 4

// qualityYieldThreshold is the fraction of planned quantity below which an
// assembly counts as a yield shortfall.
const qualityYieldThreshold = 0.95

// safeDayRatio computes numerator / (denominator / 365) guarding against a
// zero denominator, which yields 0 rather than Inf/NaN.
func safeDayRatio(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	ratio, _ := numerator.Div(denominator.Div(decimal.NewFromInt(daysPerYear))).Float64()
	return ratio
}

// ComputeWorkingCapitalMetrics fills the derived DSO/DIO/DPO/CCC fields from
// the raw balances already present on the payload.
//
//	DSO = AR / (revenue / 365)
//	DIO = inventory / (COGS / 365)
//	DPO = AP / (COGS / 365)
//	CCC = DSO + DIO - DPO
func ComputeWorkingCapitalMetrics(wc *WorkingCapital) {
	wc.DSO = safeDayRatio(wc.AccountsReceivable, wc.Revenue)
	wc.DIO = safeDayRatio(wc.Inventory, wc.CostOfGoodsSold)
	wc.DPO = safeDayRatio(wc.AccountsPayable, wc.CostOfGoodsSold)
	wc.CashConversionCycle = wc.DSO + wc.DIO - wc.DPO
}

// SummarizeInventory builds an InventorySummary from normalized SKU lines.
// Total value is Σ(quantity_on_hand × average_landed_cost); a zero-stock item
// is also low-stock when its minimum level is positive.
func SummarizeInventory(items []InventoryItem) InventorySummary {
	summary := InventorySummary{
		TotalValue:     decimal.Zero,
		TotalSKUs:      len(items),
		LowStockItems:  make([]InventoryItem, 0),
		ZeroStockItems: make([]InventoryItem, 0),
	}
	for _, item := range items {
		summary.TotalValue = summary.TotalValue.Add(item.QuantityOnHand.Mul(item.AverageLandedCost))
		if item.LowStock() {
			summary.LowStockItems = append(summary.LowStockItems, item)
		}
		if item.ZeroStock() {
			summary.ZeroStockItems = append(summary.ZeroStockItems, item)
		}
	}
	return summary
}

// SummarizeProduction builds a ProductionSummary from normalized jobs.
// Utilization is (active jobs / max capacity) × 100; maxCapacity <= 0 falls
// back to DefaultMaxCapacity.
func SummarizeProduction(jobs []ProductionJob, maxCapacity int) ProductionSummary {
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	summary := ProductionSummary{
		MaxCapacity: maxCapacity,
		Jobs:        jobs,
	}
	for _, job := range jobs {
		switch job.Status {
		case "COMPLETED":
			summary.CompletedJobs++
		default:
			summary.ActiveJobs++
		}
	}
	summary.UtilizationRate = float64(summary.ActiveJobs) / float64(maxCapacity) * 100
	return summary
}

// YieldShortfall reports whether a completed job produced less than 95% of
// its planned quantity.
func YieldShortfall(job ProductionJob) bool {
	if job.PlannedQuantity.IsZero() {
		return false
	}
	threshold := job.PlannedQuantity.Mul(decimal.NewFromFloat(qualityYieldThreshold))
	return job.ActualQuantity.LessThan(threshold)
}
