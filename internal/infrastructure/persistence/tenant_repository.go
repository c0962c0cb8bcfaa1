package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/infrastructure/persistence/models"
)

// GormTenantRepository implements integration.TenantRepository using GORM.
// A tenant's configured integrations are derived from the rows in the
// credentials table rather than duplicated on the tenant.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrTenantNotFound
		}
		return nil, err
	}
	kinds, err := r.configuredKinds(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(kinds), nil
}

// ListActive returns every active tenant with its configured integrations.
func (r *GormTenantRepository) ListActive(ctx context.Context) ([]*integration.Tenant, error) {
	var tenantModels []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&tenantModels).Error; err != nil {
		return nil, err
	}

	tenants := make([]*integration.Tenant, 0, len(tenantModels))
	for _, model := range tenantModels {
		kinds, err := r.configuredKinds(ctx, model.ID)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, model.ToDomain(kinds))
	}
	return tenants, nil
}

func (r *GormTenantRepository) configuredKinds(ctx context.Context, tenantID uuid.UUID) ([]integration.Kind, error) {
	var raw []string
	if err := r.db.WithContext(ctx).
		Model(&models.CredentialModel{}).
		Where("tenant_id = ?", tenantID).
		Order("kind ASC").
		Pluck("kind", &raw).Error; err != nil {
		return nil, err
	}
	kinds := make([]integration.Kind, 0, len(raw))
	for _, k := range raw {
		kinds = append(kinds, integration.Kind(k))
	}
	return kinds, nil
}

// Ensure GormTenantRepository implements the TenantRepository interface
var _ integration.TenantRepository = (*GormTenantRepository)(nil)
