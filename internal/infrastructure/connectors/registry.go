package connectors

import (
	"github.com/capliquify/backend/internal/domain/integration"
)

// Registry is the static connector lookup. All adapters are registered at
// startup; registration is not concurrency-safe and must finish before Get
// is called.
type Registry struct {
	connectors map[integration.Kind]integration.Connector
	order      []integration.Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[integration.Kind]integration.Connector)}
}

// Register adds a connector, replacing any previous one for the same kind.
func (r *Registry) Register(c integration.Connector) {
	if _, exists := r.connectors[c.Kind()]; !exists {
		r.order = append(r.order, c.Kind())
	}
	r.connectors[c.Kind()] = c
}

// Get returns the connector for kind.
func (r *Registry) Get(kind integration.Kind) (integration.Connector, error) {
	c, ok := r.connectors[kind]
	if !ok {
		return nil, integration.ErrInvalidKind
	}
	return c, nil
}

// List returns all registered connectors in registration order.
func (r *Registry) List() []integration.Connector {
	out := make([]integration.Connector, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.connectors[kind])
	}
	return out
}

// Ensure Registry implements the ConnectorRegistry interface
var _ integration.ConnectorRegistry = (*Registry)(nil)
