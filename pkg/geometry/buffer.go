package geometry

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/geo"
	"github.com/kass/go-geofence/pkg/models"
)

const (
	// arcStep is the largest angle between two vertices of a round join
	arcStep = math.Pi / 16
	// miterLimit caps the miter length as a multiple of the offset
	miterLimit = 10.0
	// minHoleArea is the area in square meters below which a hole is gone
	minHoleArea = 1.0
)

type vec struct{ x, y float64 }

func (a vec) add(b vec) vec { return vec{a.x + b.x, a.y + b.y} }
func (a vec) sub(b vec) vec { return vec{a.x - b.x, a.y - b.y} }
func (a vec) scale(s float64) vec { return vec{a.x * s, a.y * s} }
func (a vec) dot(b vec) float64 { return a.x*b.x + a.y*b.y }
func (a vec) cross(b vec) float64 { return a.x*b.y - a.y*b.x }
func (a vec) length() float64 { return math.Hypot(a.x, a.y) }
func (a vec) angle() float64 { return math.Atan2(a.y, a.x) }
func unitAt(angle float64) vec { return vec{math.Cos(angle), math.Sin(angle)} }

// normal returns the unit right-hand normal, outward for a counter-clockwise ring
func (a vec) normal() vec {
	l := a.length()
	return vec{a.y / l, -a.x / l}
}

// signedArea is positive for counter-clockwise rings. The ring is open.
func signedArea(pts []vec) float64 {
	var area float64
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].cross(pts[j])
	}
	return area / 2
}

// BufferRing offsets a closed ring by meters in a local planar projection.
// Outer rings grow; holes (hole == true) shrink and return ErrHoleCollapsed
// once nothing is left. Convex corners get round joins, reflex corners get
// miter joins with a bevel beyond the miter limit. A zero offset returns an
// exact copy.
func BufferRing(ring []models.Location, meters float64, hole bool) ([]models.Location, error) {
	if meters == 0 {
		out := make([]models.Location, len(ring))
		copy(out, ring)
		return out, nil
	}
	if err := validateRing(ring); err != nil {
		return nil, err
	}

	open := ring[:len(ring)-1]
	var center models.Location
	for _, loc := range open {
		center.Lat += loc.Lat
		center.Lon += loc.Lon
	}
	center.Lat /= float64(len(open))
	center.Lon /= float64(len(open))
	proj := geo.NewProjection(center)

	pts := make([]vec, 0, len(open))
	for _, loc := range open {
		x, y := proj.Forward(loc)
		p := vec{x, y}
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil, eris.Wrap(ErrInvalidGeometry, "geometry: ring degenerates after projection")
	}

	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	s := meters
	if hole {
		s = -meters
		if holeCollapses(pts, meters) {
			return nil, ErrHoleCollapsed
		}
	}

	offset := offsetRing(pts, s)

	if hole && signedArea(offset) <= minHoleArea {
		return nil, ErrHoleCollapsed
	}

	out := make([]models.Location, 0, len(offset)+1)
	for _, p := range offset {
		loc := proj.Inverse(p.x, p.y)
		loc.Lat = math.Max(-90, math.Min(90, loc.Lat))
		loc.Lon = math.Max(-180, math.Min(180, loc.Lon))
		out = append(out, loc)
	}
	out = append(out, out[0])
	return out, nil
}

// holeCollapses reports whether shrinking by meters certainly removes the
// hole: the inradius never exceeds half the narrower bounding-box side.
func holeCollapses(pts []vec, meters float64) bool {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	return 2*meters >= math.Min(maxX-minX, maxY-minY)
}

// offsetRing moves every edge of a counter-clockwise ring by s along its
// outward normal and joins consecutive edges.
func offsetRing(pts []vec, s float64) []vec {
	n := len(pts)
	out := make([]vec, 0, n*2)

	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		v := pts[i]
		next := pts[(i+1)%n]

		e1 := v.sub(prev)
		e2 := next.sub(v)
		n1 := e1.normal()
		n2 := e2.normal()

		turn := e1.cross(e2)
		dot := n1.dot(n2)
		reversal := dot < -1+1e-12

		if reversal || turn*s > 0 {
			// corner opens on the offset side
			a1 := n1.angle()
			delta := n2.angle() - a1
			for delta > math.Pi {
				delta -= 2 * math.Pi
			}
			for delta <= -math.Pi {
				delta += 2 * math.Pi
			}
			if reversal {
				delta = math.Copysign(math.Pi, s)
			}
			steps := int(math.Ceil(math.Abs(delta) / arcStep))
			if steps < 1 {
				steps = 1
			}
			for k := 0; k <= steps; k++ {
				a := a1 + delta*float64(k)/float64(steps)
				out = append(out, v.add(unitAt(a).scale(s)))
			}
			continue
		}

		miter := n1.add(n2).scale(s / (1 + dot))
		if miter.length() > miterLimit*math.Abs(s) {
			out = append(out, v.add(n1.scale(s)), v.add(n2.scale(s)))
			continue
		}
		out = append(out, v.add(miter))
	}
	return out
}
