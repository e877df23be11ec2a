package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/pkg/models"
)

// BatchItem is the outcome for one location of a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Index  int                       `json:"index"`
	Result *models.ContainmentResult `json:"result,omitempty"`
	Err    error                     `json:"-"`
}

// BatchCheck checks every location against a single snapshot using a
// bounded worker pool. Output order matches input order; invalid locations
// fail individually.
func (e *Engine) BatchCheck(ctx context.Context, locs []models.Location) ([]BatchItem, error) {
	if e.maxBatch > 0 && len(locs) > e.maxBatch {
		return nil, eris.Wrapf(ErrBatchTooLarge, "engine: %d locations, limit %d", len(locs), e.maxBatch)
	}

	metrics.BatchSize.Observe(float64(len(locs)))

	snap := e.reg.Snapshot()
	items := make([]BatchItem, len(locs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, loc := range locs {
		g.Go(func() error {
			items[i].Index = i
			valid, err := validateLocation(loc.Lat, loc.Lon)
			if err != nil {
				metrics.ChecksTotal.WithLabelValues("error").Inc()
				items[i].Err = err
				return nil
			}
			if err := gctx.Err(); err != nil {
				metrics.ChecksTotal.WithLabelValues("error").Inc()
				items[i].Err = eris.Wrap(err, "engine: batch cancelled")
				return nil
			}
			items[i].Result, items[i].Err = e.check(gctx, snap, valid)
			return nil
		})
	}

	// per-item errors are recorded, the group itself never fails
	_ = g.Wait()
	return items, ctx.Err()
}
