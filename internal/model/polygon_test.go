package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonGeom(t *testing.T) {
	assert.Nil(t, Polygon{}.Geom())

	p := Polygon{Points: []Point{
		{Latitude: 50.4, Longitude: 30.4},
		{Latitude: 50.5, Longitude: 30.4},
		{Latitude: 50.5, Longitude: 30.6},
	}}
	g := p.Geom()
	require.NotNil(t, g)
	coords := g.Coords()[0]
	require.Len(t, coords, 3)
	assert.Equal(t, 30.4, coords[0].X())
	assert.Equal(t, 50.4, coords[0].Y())
}

func TestPolygonBounds(t *testing.T) {
	assert.Nil(t, Polygon{}.Bounds())

	p := Polygon{Points: []Point{
		{Latitude: 50.4, Longitude: 30.6},
		{Latitude: 50.5, Longitude: 30.4},
		{Latitude: 50.3, Longitude: 30.5},
	}}
	b := p.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, Bounds{South: 50.3, West: 30.4, North: 50.5, East: 30.6}, *b)
}

func TestBoundsFromPolygons(t *testing.T) {
	assert.Nil(t, BoundsFromPolygons(nil))
	assert.Nil(t, BoundsFromPolygons([]Polygon{{}, {}}))

	b := BoundsFromPolygons([]Polygon{
		{Points: []Point{{Latitude: 50.4, Longitude: 30.4}, {Latitude: 50.5, Longitude: 30.5}}},
		{}, // empty rings are skipped
		{Points: []Point{{Latitude: 49.8, Longitude: 24.0}, {Latitude: 49.9, Longitude: 24.1}}},
	})
	require.NotNil(t, b)
	assert.Equal(t, Bounds{South: 49.8, West: 24.0, North: 50.5, East: 30.5}, *b)
}
