package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/capliquify/backend/internal/domain/integration"
)

// CredentialResolver turns stored credential rows into validated, typed
// credentials. A missing or incomplete credential resolves to a
// NOT_CONFIGURED result naming the missing fields; the resolver never
// fabricates a credential.
type CredentialResolver struct {
	store integration.CredentialStore
}

// NewCredentialResolver creates a new CredentialResolver
func NewCredentialResolver(store integration.CredentialStore) *CredentialResolver {
	return &CredentialResolver{store: store}
}

// Resolve loads and validates the tenant's credential for kind.
func (r *CredentialResolver) Resolve(ctx context.Context, tenantID uuid.UUID, kind integration.Kind) (*integration.CredentialResult, error) {
	record, err := r.store.Find(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	if record == nil || len(record.Payload) == 0 {
		return &integration.CredentialResult{
			Status:        integration.ConnectionNotConfigured,
			MissingFields: integration.RequiredFields(kind),
		}, nil
	}

	credential, err := integration.DecodeCredential(kind, record.Payload)
	if err != nil {
		var configErr *integration.ConfigurationError
		if errors.As(err, &configErr) {
			return &integration.CredentialResult{
				Status:        integration.ConnectionNotConfigured,
				MissingFields: configErr.MissingFields,
			}, nil
		}
		return nil, err
	}

	return &integration.CredentialResult{
		Status:     integration.ConnectionConnected,
		Credential: credential,
	}, nil
}
