package integration

import (
	"context"

	"github.com/google/uuid"
)

// Connector is the port interface every vendor adapter implements.
// Implementations live in the infrastructure layer (Ports & Adapters); the
// orchestrator only ever sees this interface.
//
// Sync authenticates against the vendor, performs the paginated fetch, and
// normalizes the response into one snapshot per data domain the vendor
// covers. On failure it returns a typed error from the taxonomy in errors.go
// and never a substitute payload.
type Connector interface {
	// Kind returns the integration this connector handles
	Kind() Kind

	// Domains returns the data domains one sync of this connector produces
	Domains() []Domain

	// Sync fetches and normalizes the vendor's current state for the tenant.
	Sync(ctx context.Context, tenantID uuid.UUID, credential Credential) ([]Snapshot, error)
}

// ConnectorRegistry gives the orchestrator access to the configured adapters.
type ConnectorRegistry interface {
	// Get returns the connector for the given kind
	Get(kind Kind) (Connector, error)

	// List returns all registered connectors
	List() []Connector
}
