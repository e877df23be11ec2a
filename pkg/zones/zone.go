// Package zones owns validated restricted zones and the immutable snapshots
// that queries run against.
package zones

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/geo"
	"github.com/kass/go-geofence/pkg/geometry"
	"github.com/kass/go-geofence/pkg/models"
)

// Zone is a validated restricted zone with its buffered boundary. It is
// never modified after construction.
type Zone struct {
	ID       string
	Name     string
	Operator string
	Region   string

	original     *geometry.Polygon
	buffered     *geometry.Polygon
	bufferMeters float64
	bounds       models.BoundingBox
}

// NewZone validates a record and derives its buffered boundary
func NewZone(rec models.ZoneRecord, bufferMeters float64) (*Zone, error) {
	if rec.ID == "" {
		return nil, eris.Wrap(geometry.ErrInvalidGeometry, "zones: zone has no id")
	}
	if err := validateBuffer(bufferMeters); err != nil {
		return nil, err
	}

	original, err := geometry.NewPolygon(rec.Boundary)
	if err != nil {
		return nil, eris.Wrapf(err, "zones: zone %s", rec.ID)
	}

	buffered, err := original.Buffer(bufferMeters)
	if err != nil {
		return nil, eris.Wrapf(err, "zones: buffer zone %s", rec.ID)
	}

	return &Zone{
		ID:           rec.ID,
		Name:         rec.Name,
		Operator:     rec.Operator,
		Region:       rec.Region,
		original:     original,
		buffered:     buffered,
		bufferMeters: bufferMeters,
		bounds:       geo.ExpandBounds(original.Bounds(), bufferMeters).Union(buffered.Bounds()),
	}, nil
}

func validateBuffer(meters float64) error {
	if meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return eris.Wrapf(ErrInvalidBuffer, "zones: buffer %v", meters)
	}
	return nil
}

// Ref returns the identifying fields reported in results
func (z *Zone) Ref() models.ZoneRef {
	return models.ZoneRef{ID: z.ID, Name: z.Name, Operator: z.Operator, Region: z.Region}
}

// Record returns the zone as a source record with its original boundary
func (z *Zone) Record() models.ZoneRecord {
	return models.ZoneRecord{
		ID:       z.ID,
		Name:     z.Name,
		Operator: z.Operator,
		Region:   z.Region,
		Boundary: z.original.Rings(),
	}
}

// Original returns the unbuffered boundary
func (z *Zone) Original() *geometry.Polygon { return z.original }

// Buffered returns the boundary grown by the buffer
func (z *Zone) Buffered() *geometry.Polygon { return z.buffered }

// BufferMeters returns the buffer the zone was built with
func (z *Zone) BufferMeters() float64 { return z.bufferMeters }

// Bounds returns a box that holds every location the zone contains
func (z *Zone) Bounds() models.BoundingBox { return z.bounds }

// Contains reports whether loc is inside the original boundary or within the
// buffer distance of it. Boundary points are inside.
func (z *Zone) Contains(loc models.Location) bool {
	return z.Distance(loc) == 0
}

// Distance returns how far loc is from the buffered zone in meters, 0 when
// the zone contains loc.
func (z *Zone) Distance(loc models.Location) float64 {
	if z.original.ContainsPoint(loc) {
		return 0
	}
	d := z.original.BoundaryDistance(loc)
	if d <= z.bufferMeters {
		return 0
	}
	return d - z.bufferMeters
}

// lessID orders zone ids numerically when both are integers (OSM ids) and
// lexically otherwise.
func lessID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a < b
}
