package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/infrastructure/persistence/models"
)

// GormCredentialStore implements integration.CredentialStore using GORM.
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

// Find returns the stored credential record, or nil when the tenant never
// configured this integration.
func (s *GormCredentialStore) Find(ctx context.Context, tenantID uuid.UUID, kind integration.Kind) (*integration.CredentialRecord, error) {
	var model models.CredentialModel
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, string(kind)).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus records the outcome of the latest credential use. Only the
// bookkeeping columns change; the payload is never touched here.
func (s *GormCredentialStore) UpdateStatus(ctx context.Context, tenantID uuid.UUID, kind integration.Kind, status integration.ConnectionStatus, validatedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.CredentialModel{}).
		Where("tenant_id = ? AND kind = ?", tenantID, string(kind)).
		Updates(map[string]any{
			"status":            string(status),
			"last_validated_at": validatedAt,
			"updated_at":        validatedAt,
		}).Error
}

// Ensure GormCredentialStore implements the CredentialStore interface
var _ integration.CredentialStore = (*GormCredentialStore)(nil)
