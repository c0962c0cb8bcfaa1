package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements integration.SyncRunRepository using GORM.
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Create persists a new sync run in its RUNNING state.
func (r *GormSyncRunRepository) Create(ctx context.Context, run *integration.SyncRun) error {
	return r.db.WithContext(ctx).Create(models.SyncRunModelFromDomain(run)).Error
}

// UpdateTerminal writes the terminal state of a run.
func (r *GormSyncRunRepository) UpdateTerminal(ctx context.Context, run *integration.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":       model.Status,
			"domains":      model.Domains,
			"finished_at":  model.FinishedAt,
			"error_detail": model.ErrorDetail,
			"record_count": model.RecordCount,
		}).Error
}

// ListByTenant returns the tenant's runs newest first.
func (r *GormSyncRunRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*integration.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runModels []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*integration.SyncRun, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, nil
}

// Prune deletes all but the newest keep runs for one tenant+kind.
func (r *GormSyncRunRepository) Prune(ctx context.Context, tenantID uuid.UUID, kind integration.Kind, keep int) error {
	if keep <= 0 {
		return nil
	}
	// Subquery over the survivors; portable across postgres and sqlite.
	survivors := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Select("id").
		Where("tenant_id = ? AND kind = ?", tenantID, string(kind)).
		Order("started_at DESC").
		Limit(keep)

	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND id NOT IN (?)", tenantID, string(kind), survivors).
		Delete(&models.SyncRunModel{}).Error
}

// Ensure GormSyncRunRepository implements the SyncRunRepository interface
var _ integration.SyncRunRepository = (*GormSyncRunRepository)(nil)
