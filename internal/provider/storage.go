package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atlasgeo/placestore/internal/model"
	"github.com/atlasgeo/placestore/internal/store"
)

// StorageName identifies the local place store provider.
const StorageName = "storage"

// ReversePhraseFunc turns coordinates into the search phrase used against
// the store. The default renders both axes to five decimal places, about a
// meter of precision.
type ReversePhraseFunc func(coords model.Coordinates) string

// StorageProvider serves geocoding requests from the local place store,
// without calling any remote API.
type StorageProvider struct {
	store         store.Store
	reversePhrase ReversePhraseFunc
}

// StorageOption configures a StorageProvider.
type StorageOption func(*StorageProvider)

// WithReversePhrase replaces the coordinate-to-phrase mapping for reverse
// queries.
func WithReversePhrase(fn ReversePhraseFunc) StorageOption {
	return func(p *StorageProvider) {
		if fn != nil {
			p.reversePhrase = fn
		}
	}
}

// NewStorage wraps a store as a provider.
func NewStorage(s store.Store, opts ...StorageOption) *StorageProvider {
	p := &StorageProvider{
		store: s,
		reversePhrase: func(c model.Coordinates) string {
			return fmt.Sprintf("%.5f %.5f", c.Latitude, c.Longitude)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *StorageProvider) Name() string { return StorageName }

// GeocodeQuery implements Provider.
func (p *StorageProvider) GeocodeQuery(ctx context.Context, q Query) ([]model.Place, error) {
	found, err := p.store.Get(ctx, q.Text, q.Page, q.MaxResults)
	if err != nil {
		return nil, err
	}
	places := make([]model.Place, 0, len(found))
	for _, place := range found {
		places = append(places, place)
	}
	zap.L().Debug("storage provider: geocode",
		zap.String("query", q.Text),
		zap.Int("results", len(places)),
	)
	return places, nil
}

// ReverseQuery implements Provider.
func (p *StorageProvider) ReverseQuery(ctx context.Context, coords model.Coordinates) ([]model.Place, error) {
	phrase := p.reversePhrase(coords)
	found, err := p.store.Get(ctx, phrase, 0, 0)
	if err != nil {
		return nil, err
	}
	places := make([]model.Place, 0, len(found))
	for _, place := range found {
		places = append(places, place)
	}
	zap.L().Debug("storage provider: reverse",
		zap.String("phrase", phrase),
		zap.Int("results", len(places)),
	)
	return places, nil
}
