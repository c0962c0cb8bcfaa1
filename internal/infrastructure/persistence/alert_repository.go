package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/infrastructure/persistence/models"
)

// GormAlertRepository implements integration.AlertRepository using GORM.
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindOpen returns the open alert for tenant+source+domain+kind, or nil.
func (r *GormAlertRepository) FindOpen(ctx context.Context, tenantID uuid.UUID, source integration.Kind, domain integration.Domain, kind integration.AlertKind) (*integration.Alert, error) {
	var model models.AlertModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source = ? AND domain = ? AND kind = ? AND resolved_at IS NULL",
			tenantID, string(source), string(domain), string(kind)).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListOpenByTenant returns all open alerts for a tenant, newest first.
func (r *GormAlertRepository) ListOpenByTenant(ctx context.Context, tenantID uuid.UUID) ([]*integration.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resolved_at IS NULL", tenantID).
		Order("detected_at DESC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	return toDomainAlerts(alertModels), nil
}

// ListOpenBySource returns the open alerts one integration raised on a
// domain, newest first.
func (r *GormAlertRepository) ListOpenBySource(ctx context.Context, tenantID uuid.UUID, source integration.Kind, domain integration.Domain) ([]*integration.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source = ? AND domain = ? AND resolved_at IS NULL",
			tenantID, string(source), string(domain)).
		Order("detected_at DESC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	return toDomainAlerts(alertModels), nil
}

// Save upserts an alert by ID.
func (r *GormAlertRepository) Save(ctx context.Context, alert *integration.Alert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(models.AlertModelFromDomain(alert)).Error
}

func toDomainAlerts(alertModels []models.AlertModel) []*integration.Alert {
	alerts := make([]*integration.Alert, len(alertModels))
	for i := range alertModels {
		alerts[i] = alertModels[i].ToDomain()
	}
	return alerts
}

// Ensure GormAlertRepository implements the AlertRepository interface
var _ integration.AlertRepository = (*GormAlertRepository)(nil)
