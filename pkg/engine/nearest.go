package engine

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/pkg/geo"
	"github.com/kass/go-geofence/pkg/models"
)

// maxSearchMeters is half the earth's circumference: every location is
// within it of every other.
const maxSearchMeters = math.Pi * geo.EarthRadiusMeters

// Nearest returns the zone closest to the location, or nil when none lies
// within maxMeters. Distance is 0 for a location inside a zone. Pass
// math.Inf(1) to search without a limit.
func (e *Engine) Nearest(ctx context.Context, lat, lon, maxMeters float64) (*models.NearestResult, error) {
	loc, err := validateLocation(lat, lon)
	if err != nil {
		return nil, err
	}
	if err := validateRadius(maxMeters); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := e.nearest(ctx, loc, maxMeters)
	metrics.NearestDurationMs.Observe(metrics.SinceMs(start))
	switch {
	case err != nil:
		metrics.NearestTotal.WithLabelValues("error").Inc()
	case res == nil:
		metrics.NearestTotal.WithLabelValues("none").Inc()
	default:
		metrics.NearestTotal.WithLabelValues("found").Inc()
	}
	return res, err
}

func (e *Engine) nearest(ctx context.Context, loc models.Location, maxMeters float64) (*models.NearestResult, error) {
	snap := e.reg.Snapshot()
	if snap.Empty() {
		return nil, nil
	}

	limit := math.Min(maxMeters, maxSearchMeters)
	radius := math.Min(e.initialRadius, limit)
	distances := make(map[int]float64)

	// grow the radius until the best zone found is inside it
	for {
		best, bestDist := -1, math.Inf(1)
		for n, idx := range snap.CandidatesWithin(loc, radius) {
			if n > 0 && n%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, eris.Wrap(err, "engine: nearest cancelled")
				}
			}
			d, ok := distances[idx]
			if !ok {
				d = snap.Zone(idx).Distance(loc)
				distances[idx] = d
			}
			if d < bestDist {
				best, bestDist = idx, d
			}
		}

		if best >= 0 && bestDist <= radius {
			if bestDist > maxMeters {
				return nil, nil
			}
			return &models.NearestResult{
				Zone:           snap.Zone(best).Ref(),
				DistanceMeters: bestDist,
			}, nil
		}
		if radius >= limit {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "engine: nearest cancelled")
		}
		radius = math.Min(math.Max(radius*2, 1), limit)
	}
}
