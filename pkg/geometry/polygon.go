// Package geometry models zone boundaries as go-geom polygons and provides
// the exact tests run after index pruning: closed even-odd containment and
// great-circle distance to the boundary.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/kass/go-geofence/pkg/geo"
	"github.com/kass/go-geofence/pkg/models"
)

var (
	// ErrInvalidGeometry marks rings that are unclosed, too short or out of range.
	ErrInvalidGeometry = eris.New("geometry: invalid geometry")
	// ErrHoleCollapsed marks a hole that vanished while buffering.
	ErrHoleCollapsed = eris.New("geometry: hole collapsed")
)

// onEdgeEpsilon is the tolerance in degrees for the boundary test
const onEdgeEpsilon = 1e-12

// Polygon is an immutable polygon with one outer ring and optional holes.
// Coordinates are stored X = lon, Y = lat.
type Polygon struct {
	g      *geom.Polygon
	bounds models.BoundingBox
}

// NewPolygon validates rings and builds a polygon. rings[0] is the outer
// ring; the rest are holes.
func NewPolygon(rings [][]models.Location) (*Polygon, error) {
	if len(rings) == 0 {
		return nil, eris.Wrap(ErrInvalidGeometry, "geometry: polygon has no rings")
	}

	coords := make([][]geom.Coord, 0, len(rings))
	for i, ring := range rings {
		if err := validateRing(ring); err != nil {
			return nil, eris.Wrapf(err, "geometry: ring %d", i)
		}
		rc := make([]geom.Coord, len(ring))
		for j, loc := range ring {
			rc[j] = geom.Coord{loc.Lon, loc.Lat}
		}
		coords = append(coords, rc)
	}

	g, err := geom.NewPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidGeometry, err.Error())
	}

	b := g.Bounds()
	return &Polygon{
		g: g,
		bounds: models.BoundingBox{
			BottomLeft: models.Location{Lat: b.Min(1), Lon: b.Min(0)},
			TopRight:   models.Location{Lat: b.Max(1), Lon: b.Max(0)},
		},
	}, nil
}

func validateRing(ring []models.Location) error {
	if len(ring) < 4 {
		return eris.Wrapf(ErrInvalidGeometry, "geometry: ring has %d vertices, need at least 4", len(ring))
	}
	for _, loc := range ring {
		if !loc.Valid() {
			return eris.Wrapf(ErrInvalidGeometry, "geometry: vertex %v out of range", loc)
		}
	}
	if ring[0] != ring[len(ring)-1] {
		return eris.Wrap(ErrInvalidGeometry, "geometry: ring is not closed")
	}

	distinct := make(map[models.Location]struct{}, len(ring))
	for _, loc := range ring {
		distinct[loc] = struct{}{}
	}
	if len(distinct) < 3 {
		return eris.Wrap(ErrInvalidGeometry, "geometry: ring has fewer than 3 distinct vertices")
	}
	return nil
}

// Geom exposes the underlying go-geom polygon
func (p *Polygon) Geom() *geom.Polygon {
	return p.g
}

// Bounds returns the bounding box of the outer ring
func (p *Polygon) Bounds() models.BoundingBox {
	return p.bounds
}

// NumRings returns the number of rings, outer ring included
func (p *Polygon) NumRings() int {
	return p.g.NumLinearRings()
}

// Rings returns a copy of the rings as locations
func (p *Polygon) Rings() [][]models.Location {
	rings := make([][]models.Location, p.g.NumLinearRings())
	for i := range rings {
		flat := p.g.LinearRing(i).FlatCoords()
		ring := make([]models.Location, 0, len(flat)/2)
		for j := 0; j+1 < len(flat); j += 2 {
			ring = append(ring, models.Location{Lat: flat[j+1], Lon: flat[j]})
		}
		rings[i] = ring
	}
	return rings
}

// ContainsPoint runs even-odd ray casting over every ring. Points on any
// edge, hole edges included, count as inside.
func (p *Polygon) ContainsPoint(loc models.Location) bool {
	if !p.bounds.Contains(loc) {
		return false
	}

	px, py := loc.Lon, loc.Lat
	inside := false
	for i := 0; i < p.g.NumLinearRings(); i++ {
		flat := p.g.LinearRing(i).FlatCoords()
		n := len(flat) / 2
		for j := 0; j < n-1; j++ {
			ax, ay := flat[2*j], flat[2*j+1]
			bx, by := flat[2*j+2], flat[2*j+3]

			if onSegment(px, py, ax, ay, bx, by) {
				return true
			}
			if (ay > py) != (by > py) {
				xint := ax + (py-ay)*(bx-ax)/(by-ay)
				if px < xint {
					inside = !inside
				}
			}
		}
	}
	return inside
}

func onSegment(px, py, ax, ay, bx, by float64) bool {
	cross := (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	if math.Abs(cross) > onEdgeEpsilon {
		return false
	}
	return px >= math.Min(ax, bx)-onEdgeEpsilon && px <= math.Max(ax, bx)+onEdgeEpsilon &&
		py >= math.Min(ay, by)-onEdgeEpsilon && py <= math.Max(ay, by)+onEdgeEpsilon
}

// BoundaryDistance returns the great-circle distance in meters from loc to
// the nearest edge of any ring.
func (p *Polygon) BoundaryDistance(loc models.Location) float64 {
	best := math.Inf(1)
	for i := 0; i < p.g.NumLinearRings(); i++ {
		flat := p.g.LinearRing(i).FlatCoords()
		n := len(flat) / 2
		for j := 0; j < n-1; j++ {
			a := models.Location{Lat: flat[2*j+1], Lon: flat[2*j]}
			b := models.Location{Lat: flat[2*j+3], Lon: flat[2*j+2]}
			if d := geo.SegmentDistance(loc, a, b); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

// Buffer returns the polygon grown outward by meters. Holes shrink by the
// same distance and are dropped once they collapse.
func (p *Polygon) Buffer(meters float64) (*Polygon, error) {
	if meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return nil, eris.Wrapf(ErrInvalidGeometry, "geometry: invalid buffer %v", meters)
	}

	rings := p.Rings()
	out := make([][]models.Location, 0, len(rings))
	for i, ring := range rings {
		buffered, err := BufferRing(ring, meters, i > 0)
		if eris.Is(err, ErrHoleCollapsed) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "geometry: buffer ring %d", i)
		}
		out = append(out, buffered)
	}

	return NewPolygon(out)
}
