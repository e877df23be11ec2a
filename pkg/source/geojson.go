package source

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/pkg/models"
)

// property keys read from OSM exports, in order of preference
var (
	idKeys       = []string{"osm_id", "id", "@id"}
	nameKeys     = []string{"name", "official_name"}
	operatorKeys = []string{"operator"}
	regionKeys   = []string{"addr:state", "state", "region", "is_in:state"}
)

// GeoJSONFile reads a FeatureCollection of Polygon and MultiPolygon features
type GeoJSONFile struct {
	Path string
}

// Load implements Source
func (s GeoJSONFile) Load(ctx context.Context) ([]models.ZoneRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", s.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: load cancelled")
	}
	return ParseGeoJSON(data)
}

// rawFeature keeps the id untyped: OSM exports use both numbers and strings
type rawFeature struct {
	ID         json.RawMessage        `json:"id"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// ParseGeoJSON converts a FeatureCollection into zone records. A feature
// whose geometry cannot be decoded still yields a record, without boundary.
func ParseGeoJSON(data []byte) ([]models.ZoneRecord, error) {
	var fc rawCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "source: decode feature collection")
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("source: expected FeatureCollection, got %q", fc.Type)
	}

	var records []models.ZoneRecord
	for i, f := range fc.Features {
		meta := Metadata{
			ID:       featureID(f, i),
			Name:     propertyString(f.Properties, nameKeys...),
			Operator: propertyString(f.Properties, operatorKeys...),
			Region:   propertyString(f.Properties, regionKeys...),
		}

		var g geom.T
		if len(f.Geometry) > 0 && string(f.Geometry) != "null" {
			if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
				zap.L().Debug("source: undecodable geometry",
					zap.String("id", meta.ID),
					zap.Error(err),
				)
				g = nil
			}
		}
		records = append(records, RecordsFromGeometry(meta, g)...)
	}
	return records, nil
}

func featureID(f rawFeature, index int) string {
	if id := propertyString(f.Properties, idKeys...); id != "" {
		return id
	}
	if len(f.ID) > 0 {
		var s string
		if err := json.Unmarshal(f.ID, &s); err == nil && s != "" {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(f.ID, &n); err == nil && n != "" {
			return n.String()
		}
	}
	return "feature-" + strconv.Itoa(index)
}

// WriteGeoJSON encodes records as a FeatureCollection
func WriteGeoJSON(w io.Writer, records []models.ZoneRecord) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, rec := range records {
		poly, err := RecordPolygon(rec)
		if err != nil {
			return eris.Wrapf(err, "source: encode zone %s", rec.ID)
		}

		props := map[string]interface{}{"id": rec.ID}
		if rec.Name != "" {
			props["name"] = rec.Name
		}
		if rec.Operator != "" {
			props["operator"] = rec.Operator
		}
		if rec.Region != "" {
			props["region"] = rec.Region
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strings.TrimSpace(rec.ID),
			Geometry:   poly,
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "source: marshal feature collection")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "source: write feature collection")
	}
	return nil
}
