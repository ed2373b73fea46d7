package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceObjectHashStableAcrossLevelOrder(t *testing.T) {
	a, err := NewAdminLevels(
		AdminLevel{Level: 1, Name: "Kyiv", Code: "UA-30"},
		AdminLevel{Level: 2, Name: "Podil", Code: "PD"},
	)
	require.NoError(t, err)
	b, err := NewAdminLevels(
		AdminLevel{Level: 2, Name: "Podil", Code: "PD"},
		AdminLevel{Level: 1, Name: "Kyiv", Code: "UA-30"},
	)
	require.NoError(t, err)

	p1 := Place{Locality: "kyiv", AdminLevels: a}
	p2 := Place{Locality: "kyiv", AdminLevels: b}
	assert.Equal(t, p1.ObjectHash(), p2.ObjectHash())
	assert.Len(t, p1.ObjectHash(), 64)
}

func TestPlaceObjectHashChangesWithContent(t *testing.T) {
	p := Place{Locality: "kyiv"}
	q := Place{Locality: "lviv"}
	assert.NotEqual(t, p.ObjectHash(), q.ObjectHash())
}

func TestPlaceJSONRoundTrip(t *testing.T) {
	levels, err := NewAdminLevels(AdminLevel{Level: 1, Name: "Kyiv", Code: "UA-30"})
	require.NoError(t, err)

	p := Place{
		Coordinates:  &Coordinates{Latitude: 50.45, Longitude: 30.52},
		StreetNumber: "3",
		StreetName:   "nezalezhnosti sq",
		PostalCode:   "01000",
		Locality:     "kyiv",
		Country:      Country{Name: "Ukraine", Code: "ua"},
		Timezone:     "Europe/Kyiv",
		Locale:       "uk",
		ProvidedBy:   "storage",
		AdminLevels:  levels,
		Polygons: []Polygon{{Points: []Point{
			{Latitude: 50.4, Longitude: 30.4},
			{Latitude: 50.5, Longitude: 30.4},
			{Latitude: 50.5, Longitude: 30.6},
		}}},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var back Place
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
	assert.Equal(t, p.ObjectHash(), back.ObjectHash())
}

func TestPlaceJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Place{Locality: "kyiv"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"locality":"kyiv","country":{},"admin_levels":[]}`, string(data))
}
