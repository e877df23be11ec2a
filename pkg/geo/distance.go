// Package geo holds the spherical-earth helpers shared by the geometry,
// index and engine packages. All distances are in meters.
package geo

import (
	"math"

	"github.com/kass/go-geofence/pkg/models"
)

// EarthRadiusMeters is the mean earth radius (IUGG)
const EarthRadiusMeters = 6371008.8

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Distance calculates the Haversine distance between two locations in meters
func Distance(a, b models.Location) float64 {
	return angularDistance(a, b) * EarthRadiusMeters
}

// angularDistance returns the central angle between a and b in radians
func angularDistance(a, b models.Location) float64 {
	lat1Rad := toRad(a.Lat)
	lat2Rad := toRad(b.Lat)
	dLat := lat2Rad - lat1Rad
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// bearing returns the initial great-circle bearing from a to b in radians
func bearing(a, b models.Location) float64 {
	lat1Rad := toRad(a.Lat)
	lat2Rad := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)
	return math.Atan2(y, x)
}

// SegmentDistance returns the great-circle distance in meters from p to the
// closest point of the arc a-b.
func SegmentDistance(p, a, b models.Location) float64 {
	d12 := angularDistance(a, b)
	d13 := angularDistance(a, p)
	if d12 == 0 || d13 == 0 {
		return d13 * EarthRadiusMeters
	}

	theta := bearing(a, p) - bearing(a, b)
	// behind the start of the arc
	if math.Cos(theta) <= 0 {
		return d13 * EarthRadiusMeters
	}

	dxt := math.Asin(clampUnit(math.Sin(d13) * math.Sin(theta)))
	cosXt := math.Cos(dxt)
	if cosXt == 0 {
		return math.Min(d13, angularDistance(b, p)) * EarthRadiusMeters
	}

	dat := math.Acos(clampUnit(math.Cos(d13) / cosXt))
	if dat > d12 {
		return angularDistance(b, p) * EarthRadiusMeters
	}

	return math.Abs(dxt) * EarthRadiusMeters
}
