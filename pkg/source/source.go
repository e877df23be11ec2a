// Package source loads zone records from files. Records are returned as-is;
// validation happens when a snapshot is built.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/kass/go-geofence/pkg/models"
)

// Source delivers the full set of zone records on every call.
type Source interface {
	Load(ctx context.Context) ([]models.ZoneRecord, error)
}

// Metadata holds the descriptive fields attached to a geometry
type Metadata struct {
	ID       string
	Name     string
	Operator string
	Region   string
}

// RecordsFromGeometry turns a polygonal geometry into zone records. A
// multipolygon yields one record per part; parts after the first get the id
// suffix "/2", "/3" and so on. Any other geometry yields a single record
// with no boundary so that it is reported as rejected.
func RecordsFromGeometry(meta Metadata, g geom.T) []models.ZoneRecord {
	base := models.ZoneRecord{
		ID:       meta.ID,
		Name:     meta.Name,
		Operator: meta.Operator,
		Region:   meta.Region,
	}

	switch t := g.(type) {
	case *geom.Polygon:
		base.Boundary = polygonRings(t)
		return []models.ZoneRecord{base}

	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return []models.ZoneRecord{base}
		}
		records := make([]models.ZoneRecord, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			rec := base
			if i > 0 {
				rec.ID = partID(meta.ID, i+1)
			}
			rec.Boundary = polygonRings(t.Polygon(i))
			records = append(records, rec)
		}
		return records
	}

	return []models.ZoneRecord{base}
}

func partID(id string, part int) string {
	return id + "/" + strconv.Itoa(part)
}

func polygonRings(p *geom.Polygon) [][]models.Location {
	rings := make([][]models.Location, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		rings = append(rings, coordsToLocations(p.LinearRing(i).Coords()))
	}
	return rings
}

func coordsToLocations(coords []geom.Coord) []models.Location {
	ring := make([]models.Location, len(coords))
	for i, c := range coords {
		ring[i] = models.Location{Lat: c.Y(), Lon: c.X()}
	}
	return ring
}

// RecordPolygon converts a record boundary back into a go-geom polygon
func RecordPolygon(rec models.ZoneRecord) (*geom.Polygon, error) {
	coords := make([][]geom.Coord, len(rec.Boundary))
	for i, ring := range rec.Boundary {
		coords[i] = make([]geom.Coord, len(ring))
		for j, loc := range ring {
			coords[i][j] = geom.Coord{loc.Lon, loc.Lat}
		}
	}
	return geom.NewPolygon(geom.XY).SetCoords(coords)
}

// propertyString returns the first non-empty property among keys
func propertyString(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case float64:
			s = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			s = fmt.Sprint(val)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
