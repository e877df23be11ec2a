package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/zones"
)

// Check classifies a location against the active snapshot. When zones
// overlap, the one with the lowest id is reported.
func (e *Engine) Check(ctx context.Context, lat, lon float64) (*models.ContainmentResult, error) {
	loc, err := validateLocation(lat, lon)
	if err != nil {
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	return e.check(ctx, e.reg.Snapshot(), loc)
}

func (e *Engine) check(ctx context.Context, snap *zones.Snapshot, loc models.Location) (*models.ContainmentResult, error) {
	start := time.Now()
	zone, err := containingZone(ctx, snap, loc)
	metrics.CheckDurationMs.Observe(metrics.SinceMs(start))
	if err != nil {
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	res := &models.ContainmentResult{
		Contained:       zone != nil,
		Location:        loc,
		SnapshotVersion: snap.Version(),
	}
	if zone != nil {
		ref := zone.Ref()
		res.Zone = &ref
	}
	res.RiskLevel, res.Action = e.policy(res.Contained)

	if res.Contained {
		metrics.ChecksTotal.WithLabelValues("contained").Inc()
	} else {
		metrics.ChecksTotal.WithLabelValues("clear").Inc()
	}
	return res, nil
}

// containingZone returns the first candidate, in id order, that contains loc
func containingZone(ctx context.Context, snap *zones.Snapshot, loc models.Location) (*zones.Zone, error) {
	for n, idx := range snap.CandidatesContaining(loc) {
		if n > 0 && n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "engine: check cancelled")
			}
		}
		if zone := snap.Zone(idx); zone.Contains(loc) {
			return zone, nil
		}
	}
	return nil, nil
}
