package source

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/pkg/models"
)

// Shapefile reads polygon zones from an ESRI shapefile. Field names are
// matched case-insensitively; empty names fall back to OSM-style defaults.
type Shapefile struct {
	Path          string
	IDField       string
	NameField     string
	OperatorField string
	RegionField   string
}

func (s Shapefile) fieldOr(field, fallback string) string {
	if field != "" {
		return strings.ToLower(field)
	}
	return fallback
}

// Load implements Source
func (s Shapefile) Load(ctx context.Context) ([]models.ZoneRecord, error) {
	reader, err := shp.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", s.Path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var records []models.ZoneRecord
	var skipped int
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: load cancelled")
		}

		n, shape := reader.Shape()
		meta := Metadata{
			ID:       attr(s.fieldOr(s.IDField, "osm_id")),
			Name:     attr(s.fieldOr(s.NameField, "name")),
			Operator: attr(s.fieldOr(s.OperatorField, "operator")),
			Region:   attr(s.fieldOr(s.RegionField, "state")),
		}
		if meta.ID == "" {
			meta.ID = "shape-" + strconv.Itoa(n)
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			records = append(records, RecordsFromGeometry(meta, nil)...)
			continue
		}
		records = append(records, RecordsFromGeometry(meta, ShapePolygon(poly))...)
	}

	if skipped > 0 {
		zap.L().Debug("source: non-polygon shapes in shapefile",
			zap.String("path", s.Path),
			zap.Int("skipped", skipped),
		)
	}
	return records, nil
}

// ShapePolygon converts a shapefile polygon to a multipolygon. Clockwise
// parts start a new polygon; counter-clockwise parts are holes of the
// polygon before them.
func ShapePolygon(p *shp.Polygon) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return mp
	}

	var current [][]geom.Coord
	flush := func() {
		if len(current) == 0 {
			return
		}
		poly, err := geom.NewPolygon(geom.XY).SetCoords(current)
		if err != nil {
			zap.L().Debug("source: skipping malformed polygon", zap.Error(err))
		} else if err := mp.Push(poly); err != nil {
			zap.L().Debug("source: skipping malformed polygon part", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		coords := make([]geom.Coord, 0, end-start)
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		hole := xy.IsRingCounterClockwise(geom.XY, flat)
		if !hole || len(current) == 0 {
			flush()
		}
		current = append(current, coords)
	}
	flush()

	return mp
}
