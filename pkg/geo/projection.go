package geo

import (
	"math"

	"github.com/kass/go-geofence/pkg/models"
)

// Projection is a local equirectangular projection in meters around an
// origin. It is accurate for features spanning tens of kilometers.
type Projection struct {
	lat0, lon0 float64
	cosLat0    float64
}

// NewProjection creates a projection centred on origin
func NewProjection(origin models.Location) Projection {
	return Projection{
		lat0:    origin.Lat,
		lon0:    origin.Lon,
		cosLat0: math.Max(math.Cos(toRad(origin.Lat)), 1e-6),
	}
}

// Forward maps a location to planar x (east) and y (north) meters
func (p Projection) Forward(loc models.Location) (float64, float64) {
	x := toRad(loc.Lon-p.lon0) * p.cosLat0 * EarthRadiusMeters
	y := toRad(loc.Lat-p.lat0) * EarthRadiusMeters
	return x, y
}

// Inverse maps planar meters back to a location
func (p Projection) Inverse(x, y float64) models.Location {
	return models.Location{
		Lat: p.lat0 + toDeg(y/EarthRadiusMeters),
		Lon: p.lon0 + toDeg(x/(EarthRadiusMeters*p.cosLat0)),
	}
}
