package model

import (
	"github.com/twpayne/go-geom"
)

// Point is a single polygon vertex. Latitude/longitude order matches the
// stored representation, not GeoJSON.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Polygon is an ordered vertex list describing one boundary ring. Vertex
// order is significant and must survive a store round-trip.
type Polygon struct {
	Points []Point `json:"points"`
}

// Geom converts the polygon to a go-geom polygon (X=longitude, Y=latitude).
// Returns nil for an empty ring.
func (p Polygon) Geom() *geom.Polygon {
	if len(p.Points) == 0 {
		return nil
	}
	coords := make([]geom.Coord, len(p.Points))
	for i, pt := range p.Points {
		coords[i] = geom.Coord{pt.Longitude, pt.Latitude}
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords})
}

// Bounds returns the envelope of the ring, or nil for an empty one.
func (p Polygon) Bounds() *Bounds {
	g := p.Geom()
	if g == nil {
		return nil
	}
	b := g.Bounds()
	return &Bounds{
		South: b.Min(1),
		West:  b.Min(0),
		North: b.Max(1),
		East:  b.Max(0),
	}
}

// BoundsFromPolygons returns the combined envelope of all rings, or nil if
// none has a vertex.
func BoundsFromPolygons(polygons []Polygon) *Bounds {
	var acc *geom.Bounds
	for _, p := range polygons {
		g := p.Geom()
		if g == nil {
			continue
		}
		if acc == nil {
			acc = g.Bounds()
		} else {
			acc = acc.Extend(g)
		}
	}
	if acc == nil {
		return nil
	}
	return &Bounds{South: acc.Min(1), West: acc.Min(0), North: acc.Max(1), East: acc.Max(0)}
}
