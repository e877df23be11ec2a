// Package rtree implements the zone bounding-box index on top of a
// bulk-loaded R-Tree. The index only prunes: it may return zones that do not
// contain a point, never the other way round.
package rtree

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/geo"
	"github.com/kass/go-geofence/pkg/models"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// zoneBox wraps a zone bounding box to implement rtreego.Spatial
type zoneBox struct {
	idx  int
	box  models.BoundingBox
	rect *rtreego.Rect
}

func (zb *zoneBox) Bounds() *rtreego.Rect {
	return zb.rect
}

// ZoneIndex maps locations to candidate zones by their position in the
// slice the index was built from.
type ZoneIndex struct {
	tree  *rtreego.Rtree
	count int
}

// toRect converts a box to an rtreego rect with axes (lat, lon). Degenerate
// sides are padded so rtreego accepts them.
func toRect(box models.BoundingBox) (*rtreego.Rect, error) {
	bottomLeft := rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon}
	rectSize := []float64{
		math.Max(box.TopRight.Lat-box.BottomLeft.Lat, tolerance),
		math.Max(box.TopRight.Lon-box.BottomLeft.Lon, tolerance),
	}
	return rtreego.NewRect(bottomLeft, rectSize)
}

// NewZoneIndex bulk-loads an index over boxes. boxes[i] is the enlarged
// bounding box of zone i.
func NewZoneIndex(boxes []models.BoundingBox) (*ZoneIndex, error) {
	items := make([]rtreego.Spatial, 0, len(boxes))
	for i, box := range boxes {
		rect, err := toRect(box)
		if err != nil {
			return nil, eris.Wrapf(err, "rtree: bounds of zone %d", i)
		}
		items = append(items, &zoneBox{idx: i, box: box, rect: rect})
	}

	return &ZoneIndex{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		count: len(items),
	}, nil
}

// CandidatesContaining returns the zones whose box contains loc, ascending
func (z *ZoneIndex) CandidatesContaining(loc models.Location) []int {
	if z.count == 0 {
		return nil
	}

	query := rtreego.Point{loc.Lat, loc.Lon}.ToRect(tolerance)
	results := z.tree.SearchIntersect(query)

	candidates := make([]int, 0, len(results))
	for _, result := range results {
		item, ok := result.(*zoneBox)
		if !ok {
			continue
		}
		// Strict boundary check
		if item.box.Contains(loc) {
			candidates = append(candidates, item.idx)
		}
	}

	sort.Ints(candidates)
	return candidates
}

// CandidatesWithin returns the zones whose box may hold a location within
// radiusMeters of center, ascending
func (z *ZoneIndex) CandidatesWithin(center models.Location, radiusMeters float64) []int {
	if z.count == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var candidates []int
	for _, disc := range geo.DiscBoxes(center, radiusMeters) {
		query, err := toRect(disc)
		if err != nil {
			continue
		}
		for _, result := range z.tree.SearchIntersect(query) {
			item, ok := result.(*zoneBox)
			if !ok || !intersects(item.box, disc) {
				continue
			}
			if _, dup := seen[item.idx]; dup {
				continue
			}
			seen[item.idx] = struct{}{}
			candidates = append(candidates, item.idx)
		}
	}

	sort.Ints(candidates)
	return candidates
}

// Count returns the number of indexed zones
func (z *ZoneIndex) Count() int {
	return z.count
}

func intersects(a, b models.BoundingBox) bool {
	return a.BottomLeft.Lat <= b.TopRight.Lat && a.TopRight.Lat >= b.BottomLeft.Lat &&
		a.BottomLeft.Lon <= b.TopRight.Lon && a.TopRight.Lon >= b.BottomLeft.Lon
}
