package zones

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/pkg/models"
)

// Registry holds the active snapshot. Readers load it without locking;
// writers build a new snapshot and swap it in. Requests that already hold
// the old snapshot finish against it.
type Registry struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewRegistry builds the first snapshot. When no record is valid the
// registry still starts, serving an empty snapshot in degraded mode.
func NewRegistry(records []models.ZoneRecord, bufferMeters float64) (*Registry, error) {
	snap, err := build(records, bufferMeters)
	if err != nil {
		return nil, err
	}

	if snap.Empty() {
		zap.L().Warn("zones: no valid zones loaded, serving empty registry",
			zap.Int("records", len(records)),
			zap.Int("rejected", len(snap.Rejected())),
		)
	}

	r := &Registry{}
	r.current.Store(snap)
	observe(snap)
	return r, nil
}

// Snapshot returns the active snapshot
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Health returns ErrEmptyRegistry while the registry is degraded
func (r *Registry) Health() error {
	if r.Snapshot().Empty() {
		return ErrEmptyRegistry
	}
	return nil
}

// Reload replaces the active snapshot with one built from records. On error
// the previous snapshot stays active.
func (r *Registry) Reload(records []models.ZoneRecord, bufferMeters float64) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.swap(records, bufferMeters)
}

// Rebuffer rebuilds the active zones with a new buffer distance
func (r *Registry) Rebuffer(bufferMeters float64) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.swap(r.Snapshot().Records(), bufferMeters)
}

func (r *Registry) swap(records []models.ZoneRecord, bufferMeters float64) (*Snapshot, error) {
	if err := validateBuffer(bufferMeters); err != nil {
		return nil, reloadFailure(err)
	}

	snap, err := build(records, bufferMeters)
	if err != nil {
		return nil, reloadFailure(err)
	}
	if snap.Empty() {
		return nil, eris.Wrapf(ErrReloadFailure, "zones: none of %d records is valid", len(records))
	}

	prev := r.current.Swap(snap)
	observe(snap)
	zap.L().Info("zones: snapshot swapped",
		zap.String("version", snap.Version()),
		zap.String("previous", prev.Version()),
		zap.Int("zones", snap.Len()),
		zap.Float64("buffer_meters", snap.BufferMeters()),
	)
	return snap, nil
}

// reloadFailure marks err as a reload failure and keeps its cause, so both
// ErrReloadFailure and the cause match with eris.Is.
func reloadFailure(err error) error {
	return eris.Wrap(err, ErrReloadFailure.Error())
}

func observe(snap *Snapshot) {
	metrics.ZonesLoaded.Set(float64(snap.Len()))
	metrics.RejectedRecords.Set(float64(len(snap.Rejected())))
}

func build(records []models.ZoneRecord, bufferMeters float64) (*Snapshot, error) {
	start := time.Now()
	snap, err := BuildSnapshot(records, bufferMeters)
	if err != nil {
		return nil, err
	}

	for _, rej := range snap.Rejected() {
		zap.L().Warn("zones: rejected record",
			zap.Int("index", rej.Index),
			zap.String("id", rej.ID),
			zap.Error(rej.Err),
		)
	}

	zap.L().Debug("zones: snapshot built",
		zap.String("version", snap.Version()),
		zap.Int("zones", snap.Len()),
		zap.Int("rejected", len(snap.Rejected())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}
