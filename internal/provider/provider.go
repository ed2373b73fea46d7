// Package provider defines the geocoding provider contract and the registry
// implementations are looked up from.
package provider

import (
	"context"
	"sync"

	"github.com/atlasgeo/placestore/internal/model"
)

// Query is a free-text geocoding request.
type Query struct {
	Text       string
	Page       int
	MaxResults int
}

// Provider resolves geocoding requests into places.
type Provider interface {
	// Name returns the fixed provider identifier.
	Name() string
	// GeocodeQuery resolves a free-text query.
	GeocodeQuery(ctx context.Context, q Query) ([]model.Place, error)
	// ReverseQuery resolves coordinates back into known places.
	ReverseQuery(ctx context.Context, coords model.Coordinates) ([]model.Place, error)
}

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
