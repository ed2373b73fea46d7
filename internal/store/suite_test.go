package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/model"
)

func testKeyConfig() config.KeyConfig {
	return config.DefaultKeyConfig()
}

func kyivPlace(t *testing.T) model.Place {
	t.Helper()
	levels, err := model.NewAdminLevels(model.AdminLevel{Level: 1, Name: "Kyiv", Code: "UA-30"})
	require.NoError(t, err)
	return model.Place{
		Coordinates:  &model.Coordinates{Latitude: 50.45, Longitude: 30.52},
		StreetNumber: "3",
		StreetName:   "nezalezhnosti sq",
		PostalCode:   "01000",
		Locality:     "kyiv",
		Country:      model.Country{Name: "Ukraine", Code: "ua"},
		Timezone:     "Europe/Kyiv",
		Locale:       "en",
		ProvidedBy:   "test",
		AdminLevels:  levels,
		Polygons: []model.Polygon{
			{Points: []model.Point{{Latitude: 50.4, Longitude: 30.4}, {Latitude: 50.5, Longitude: 30.4}, {Latitude: 50.5, Longitude: 30.6}, {Latitude: 50.4, Longitude: 30.4}}},
			{Points: []model.Point{{Latitude: 50.41, Longitude: 30.41}, {Latitude: 50.42, Longitude: 30.42}}},
		},
	}
}

func lvivPlace(t *testing.T) model.Place {
	t.Helper()
	levels, err := model.NewAdminLevels(model.AdminLevel{Level: 1, Name: "Lviv", Code: "UA-46"})
	require.NoError(t, err)
	return model.Place{
		StreetNumber: "12",
		StreetName:   "rynok sq",
		PostalCode:   "79000",
		Locality:     "lviv",
		Country:      model.Country{Name: "Ukraine", Code: "ua"},
		Locale:       "en",
		ProvidedBy:   "test",
		AdminLevels:  levels,
	}
}

// storeSuite exercises behavior both backends must share.
func storeSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AddAndGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		place := kyivPlace(t)
		require.NoError(t, s.Add(ctx, place))

		found, err := s.Get(ctx, "kyiv", 0, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)

		key := s.CompileKey(place)
		got, ok := found[key]
		require.True(t, ok, "result keyed by compiled key")
		assert.Equal(t, place.Locality, got.Locality)
		assert.Equal(t, place.StreetName, got.StreetName)
		assert.Equal(t, place.Country, got.Country)
		require.NotNil(t, got.Coordinates)
		assert.InDelta(t, 50.45, got.Coordinates.Latitude, 1e-9)
		assert.Equal(t, place.AdminLevels.All(), got.AdminLevels.All())
		require.Len(t, got.Polygons, 2)
		assert.Equal(t, place.Polygons[0].Points, got.Polygons[0].Points)
		assert.Equal(t, place.Polygons[1].Points, got.Polygons[1].Points)
	})

	t.Run("GetMissScoresNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Add(ctx, kyivPlace(t)))
		require.NoError(t, s.Add(ctx, lvivPlace(t)))

		found, err := s.Get(ctx, "kyiv square", 0, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		for _, got := range found {
			assert.Equal(t, "kyiv", got.Locality)
		}
	})

	t.Run("UpdateReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		place := kyivPlace(t)
		require.NoError(t, s.Add(ctx, place))

		place.Timezone = "UTC"
		require.NoError(t, s.Update(ctx, place))

		found, err := s.Get(ctx, "kyiv", 0, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		for _, got := range found {
			assert.Equal(t, "UTC", got.Timezone)
		}

		all, err := s.AllPlaces(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, all, 1, "update must not duplicate the inventory entry")
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		place := kyivPlace(t)
		require.NoError(t, s.Add(ctx, place))
		require.NoError(t, s.Delete(ctx, place))

		found, err := s.Get(ctx, "kyiv", 0, 10)
		require.NoError(t, err)
		assert.Empty(t, found)

		all, err := s.AllPlaces(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("AllPlacesPagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Add(ctx, kyivPlace(t)))
		require.NoError(t, s.Add(ctx, lvivPlace(t)))

		first, err := s.AllPlaces(ctx, 0, 1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, "kyiv", first[0].Locality)

		second, err := s.AllPlaces(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, "lviv", second[0].Locality)

		past, err := s.AllPlaces(ctx, 5, 1)
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("AdminLevels", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		place := kyivPlace(t)
		require.NoError(t, place.AdminLevels.Add(model.AdminLevel{Level: 3, Name: "Shevchenkivskyi", Code: "SH"}))
		require.NoError(t, s.Add(ctx, place))

		levels, err := s.AdminLevels(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3}, levels)
	})

	t.Run("GetPagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := lvivPlace(t)
		for i := 0; i < 5; i++ {
			p := base
			p.StreetNumber = string(rune('1' + i))
			require.NoError(t, s.Add(ctx, p))
		}

		page0, err := s.Get(ctx, "lviv", 0, 3)
		require.NoError(t, err)
		page1, err := s.Get(ctx, "lviv", 1, 3)
		require.NoError(t, err)

		assert.Len(t, page0, 3)
		assert.Len(t, page1, 2)
		for key := range page1 {
			_, dup := page0[key]
			assert.False(t, dup, "pages must not overlap")
		}

		empty, err := s.Get(ctx, "lviv", 4, 3)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("MaxResultsClamped", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Add(ctx, kyivPlace(t)))

		found, err := s.Get(ctx, "kyiv", 0, 10_000)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}
