package zones

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/rtree"
)

// Snapshot is an immutable set of zones with the index built over them.
// Zones are ordered by ascending id, so index candidates come back in id
// order as well.
type Snapshot struct {
	version      string
	builtAt      time.Time
	bufferMeters float64
	zones        []*Zone
	index        *rtree.ZoneIndex
	rejected     []RecordError
}

// BuildSnapshot validates and buffers every record. Invalid or duplicate
// records are skipped and reported through Rejected; the only error is an
// invalid buffer.
func BuildSnapshot(records []models.ZoneRecord, bufferMeters float64) (*Snapshot, error) {
	if err := validateBuffer(bufferMeters); err != nil {
		return nil, err
	}

	built := make([]*Zone, len(records))
	errs := make([]error, len(records))

	// Build zones in parallel, one chunk per CPU
	numCPU := runtime.NumCPU()
	chunkSize := (len(records) + numCPU - 1) / numCPU
	var wg sync.WaitGroup
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				built[i], errs[i] = NewZone(records[i], bufferMeters)
			}
		}(start, end)
	}
	wg.Wait()

	snap := &Snapshot{
		version:      uuid.NewString(),
		builtAt:      time.Now().UTC(),
		bufferMeters: bufferMeters,
		zones:        make([]*Zone, 0, len(records)),
	}

	seen := make(map[string]struct{}, len(records))
	for i, zone := range built {
		if errs[i] != nil {
			snap.rejected = append(snap.rejected, RecordError{Index: i, ID: records[i].ID, Err: errs[i]})
			continue
		}
		if _, dup := seen[zone.ID]; dup {
			snap.rejected = append(snap.rejected, RecordError{
				Index: i,
				ID:    zone.ID,
				Err:   eris.Wrapf(ErrDuplicateZone, "zones: id %s", zone.ID),
			})
			continue
		}
		seen[zone.ID] = struct{}{}
		snap.zones = append(snap.zones, zone)
	}

	sort.Slice(snap.zones, func(i, j int) bool {
		return lessID(snap.zones[i].ID, snap.zones[j].ID)
	})

	boxes := make([]models.BoundingBox, len(snap.zones))
	for i, zone := range snap.zones {
		boxes[i] = zone.Bounds()
	}

	index, err := rtree.NewZoneIndex(boxes)
	if err != nil {
		return nil, eris.Wrap(err, "zones: build index")
	}
	snap.index = index

	return snap, nil
}

// Version identifies the snapshot
func (s *Snapshot) Version() string { return s.version }

// BuiltAt returns the build time in UTC
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// BufferMeters returns the buffer applied to every zone
func (s *Snapshot) BufferMeters() float64 { return s.bufferMeters }

// Len returns the number of valid zones
func (s *Snapshot) Len() int { return len(s.zones) }

// Empty reports whether the snapshot holds no valid zone
func (s *Snapshot) Empty() bool { return len(s.zones) == 0 }

// Zone returns the i-th zone in id order
func (s *Snapshot) Zone(i int) *Zone { return s.zones[i] }

// Zones returns the zones in id order. The slice must not be modified.
func (s *Snapshot) Zones() []*Zone { return s.zones }

// Rejected returns the records that failed validation
func (s *Snapshot) Rejected() []RecordError { return s.rejected }

// CandidatesContaining returns the positions of zones whose bounds hold loc
func (s *Snapshot) CandidatesContaining(loc models.Location) []int {
	return s.index.CandidatesContaining(loc)
}

// CandidatesWithin returns the positions of zones whose bounds come within
// radiusMeters of loc
func (s *Snapshot) CandidatesWithin(loc models.Location, radiusMeters float64) []int {
	return s.index.CandidatesWithin(loc, radiusMeters)
}

// Records returns the original records of the valid zones
func (s *Snapshot) Records() []models.ZoneRecord {
	records := make([]models.ZoneRecord, len(s.zones))
	for i, zone := range s.zones {
		records[i] = zone.Record()
	}
	return records
}

// Stats summarises the snapshot
func (s *Snapshot) Stats() models.Stats {
	stats := models.Stats{
		TotalZones:      len(s.zones),
		BufferMeters:    s.bufferMeters,
		RejectedRecords: len(s.rejected),
		ByRegion:        make(map[string]int),
		Version:         s.version,
		BuiltAt:         s.builtAt,
		Degraded:        s.Empty(),
	}
	for _, zone := range s.zones {
		if zone.Name != "" {
			stats.WithName++
		}
		if zone.Operator != "" {
			stats.WithOperator++
		}
		region := zone.Region
		if region == "" {
			region = "unknown"
		}
		stats.ByRegion[region]++
	}
	return stats
}
