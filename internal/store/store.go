// Package store persists places and answers approximate text queries
// against them. Two interchangeable backends exist: an expiring key/value
// cache and a normalized relational schema behind per-dialect SQL helpers.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/model"
)

// ErrUnsupportedDialect marks a relational dialect no helper is registered
// for.
var ErrUnsupportedDialect = eris.New("unsupported dialect")

// Store is the persistence contract shared by both backends.
type Store interface {
	// Add persists a place under its compiled key. Update does the same but
	// keeps the key inventory idempotent for keys already present.
	Add(ctx context.Context, place model.Place) error
	Update(ctx context.Context, place model.Place) error

	// Get ranks the key inventory against the phrase and resolves the
	// winning keys back into places. Malformed or expired records are
	// skipped, never surfaced as errors.
	Get(ctx context.Context, phrase string, page, maxResults int) (map[string]model.Place, error)

	// AllPlaces enumerates stored places in inventory order.
	AllPlaces(ctx context.Context, offset, limit int) ([]model.Place, error)

	// Delete removes a place and drops its key from the inventory.
	Delete(ctx context.Context, place model.Place) error

	// AdminLevels reports the distinct admin level numbers observed by the
	// store, ascending.
	AdminLevels(ctx context.Context) ([]int, error)

	// CompileKey derives the place's storage key under this store's
	// configuration.
	CompileKey(place model.Place) string

	// Config exposes the immutable key configuration.
	Config() config.KeyConfig

	Close() error
}

// clamp bounds a requested page size by the configured maximum, substituting
// the maximum for non-positive requests.
func clamp(requested, maximum int) int {
	if requested <= 0 || requested > maximum {
		return maximum
	}
	return requested
}
