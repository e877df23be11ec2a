package geo

import (
	"math"

	"github.com/kass/go-geofence/pkg/models"
)

// boxMargin widens degree spans so rounding never shrinks a box below the
// disc it must cover.
const boxMargin = 1.0001

// worldLon is the full longitude span
var worldLon = [2]float64{-180, 180}

// lonSpan returns the half-width in degrees of longitude covered by a cap of
// angular radius delta whose most poleward latitude is absLat (degrees).
// ok is false when the cap reaches a pole.
func lonSpan(delta, absLat float64) (float64, bool) {
	if absLat >= 90 {
		return 0, false
	}
	s := math.Sin(delta) / math.Cos(toRad(absLat))
	if s >= 1 {
		return 0, false
	}
	return toDeg(math.Asin(s))*boxMargin + 1e-9, true
}

// ExpandBounds grows box by meters in every direction. Boxes that would cross
// a pole or the antimeridian are widened to the full longitude range.
func ExpandBounds(box models.BoundingBox, meters float64) models.BoundingBox {
	if meters <= 0 {
		return box
	}

	delta := meters / EarthRadiusMeters
	dLat := toDeg(delta)*boxMargin + 1e-9

	out := models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Max(-90, box.BottomLeft.Lat-dLat), Lon: box.BottomLeft.Lon},
		TopRight:   models.Location{Lat: math.Min(90, box.TopRight.Lat+dLat), Lon: box.TopRight.Lon},
	}

	absLat := math.Max(math.Abs(box.BottomLeft.Lat), math.Abs(box.TopRight.Lat)) + dLat
	dLon, ok := lonSpan(delta, absLat)
	if !ok || box.BottomLeft.Lon-dLon < -180 || box.TopRight.Lon+dLon > 180 {
		out.BottomLeft.Lon, out.TopRight.Lon = worldLon[0], worldLon[1]
		return out
	}

	out.BottomLeft.Lon -= dLon
	out.TopRight.Lon += dLon
	return out
}

// DiscBoxes returns one or two boxes that together cover every location
// within meters of center. The disc is split in two when it crosses the
// antimeridian.
func DiscBoxes(center models.Location, meters float64) []models.BoundingBox {
	delta := meters / EarthRadiusMeters
	dLat := toDeg(delta)*boxMargin + 1e-9

	minLat := math.Max(-90, center.Lat-dLat)
	maxLat := math.Min(90, center.Lat+dLat)

	dLon, ok := lonSpan(delta, math.Abs(center.Lat))
	if !ok || minLat <= -90 || maxLat >= 90 || dLon >= 180 {
		return []models.BoundingBox{{
			BottomLeft: models.Location{Lat: minLat, Lon: worldLon[0]},
			TopRight:   models.Location{Lat: maxLat, Lon: worldLon[1]},
		}}
	}

	minLon := center.Lon - dLon
	maxLon := center.Lon + dLon

	switch {
	case minLon < -180:
		return []models.BoundingBox{
			{BottomLeft: models.Location{Lat: minLat, Lon: -180}, TopRight: models.Location{Lat: maxLat, Lon: maxLon}},
			{BottomLeft: models.Location{Lat: minLat, Lon: minLon + 360}, TopRight: models.Location{Lat: maxLat, Lon: 180}},
		}
	case maxLon > 180:
		return []models.BoundingBox{
			{BottomLeft: models.Location{Lat: minLat, Lon: minLon}, TopRight: models.Location{Lat: maxLat, Lon: 180}},
			{BottomLeft: models.Location{Lat: minLat, Lon: -180}, TopRight: models.Location{Lat: maxLat, Lon: maxLon - 360}},
		}
	}

	return []models.BoundingBox{{
		BottomLeft: models.Location{Lat: minLat, Lon: minLon},
		TopRight:   models.Location{Lat: maxLat, Lon: maxLon},
	}}
}
