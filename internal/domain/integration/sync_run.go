package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncRunStatus
// ---------------------------------------------------------------------------

// SyncRunStatus represents the lifecycle state of a sync run.
type SyncRunStatus string

const (
	// SyncRunStatusRunning indicates the run is in flight
	SyncRunStatusRunning SyncRunStatus = "RUNNING"
	// SyncRunStatusSuccess indicates the run completed and snapshots were cached
	SyncRunStatusSuccess SyncRunStatus = "SUCCESS"
	// SyncRunStatusFailed indicates the run failed; the stale cache is preserved
	SyncRunStatusFailed SyncRunStatus = "FAILED"
)

// IsValid returns true if the status is recognized
func (s SyncRunStatus) IsValid() bool {
	switch s {
	case SyncRunStatusRunning, SyncRunStatusSuccess, SyncRunStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the run has finished
func (s SyncRunStatus) IsTerminal() bool {
	return s == SyncRunStatusSuccess || s == SyncRunStatusFailed
}

// String returns the string representation of SyncRunStatus
func (s SyncRunStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRun
// ---------------------------------------------------------------------------

// SyncRun is the append-only audit record of one adapter sync attempt.
// It is created RUNNING when the orchestrator dispatches the adapter and
// mutated exactly once to a terminal state.
type SyncRun struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Kind        Kind
	Domains     []Domain
	Status      SyncRunStatus
	StartedAt   time.Time
	FinishedAt  *time.Time
	ErrorDetail string
	RecordCount int
}

// NewSyncRun creates a RUNNING sync run.
func NewSyncRun(tenantID uuid.UUID, kind Kind, startedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Kind:      kind,
		Status:    SyncRunStatusRunning,
		StartedAt: startedAt,
	}
}

// Complete marks the run successful, recording the domains and record count
// the adapter produced.
func (r *SyncRun) Complete(finishedAt time.Time, domains []Domain, recordCount int) {
	r.Status = SyncRunStatusSuccess
	r.FinishedAt = &finishedAt
	r.Domains = domains
	r.RecordCount = recordCount
}

// Fail marks the run failed with the adapter's error detail.
func (r *SyncRun) Fail(finishedAt time.Time, detail string) {
	r.Status = SyncRunStatusFailed
	r.FinishedAt = &finishedAt
	r.ErrorDetail = detail
}

// Duration returns how long the run took, or zero while still running.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
