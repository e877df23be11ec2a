// Package engine answers containment, batch and nearest-zone queries against
// the active zone snapshot.
package engine

import (
	"math"
	"runtime"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/zones"
)

var (
	// ErrInvalidCoordinate is returned for non-finite or out-of-range coordinates.
	ErrInvalidCoordinate = eris.New("engine: invalid coordinate")
	// ErrInvalidRadius is returned for a negative or NaN search radius.
	ErrInvalidRadius = eris.New("engine: invalid radius")
	// ErrBatchTooLarge is returned when a batch exceeds the configured size.
	ErrBatchTooLarge = eris.New("engine: batch too large")
)

const (
	defaultInitialRadius = 1000.0
	defaultMaxBatch      = 1000
	// cancelCheckEvery is how many candidates are evaluated between context checks
	cancelCheckEvery = 64
)

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of goroutines used by BatchCheck.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithInitialRadius sets the first search radius of Nearest in meters.
func WithInitialRadius(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.initialRadius = meters
		}
	}
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithMaxBatch caps the number of locations accepted by BatchCheck. Zero
// disables the cap.
func WithMaxBatch(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxBatch = n
		}
	}
}

// Engine is safe for concurrent use. Each request reads one snapshot from
// the registry and never observes a reload halfway.
type Engine struct {
	reg           *zones.Registry
	policy        Policy
	workers       int
	initialRadius float64
	maxBatch      int
}

// New creates an Engine over reg.
func New(reg *zones.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:           reg,
		policy:        DefaultPolicy,
		workers:       runtime.NumCPU(),
		initialRadius: defaultInitialRadius,
		maxBatch:      defaultMaxBatch,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine reads from.
func (e *Engine) Registry() *zones.Registry {
	return e.reg
}

// Reload replaces the zones. The previous snapshot stays active on error.
func (e *Engine) Reload(records []models.ZoneRecord, bufferMeters float64) error {
	_, err := e.reg.Reload(records, bufferMeters)
	return err
}

// Rebuffer rebuilds the current zones with a new buffer distance.
func (e *Engine) Rebuffer(bufferMeters float64) error {
	_, err := e.reg.Rebuffer(bufferMeters)
	return err
}

// Stats describes the active snapshot.
func (e *Engine) Stats() models.Stats {
	return e.reg.Snapshot().Stats()
}

// Health returns zones.ErrEmptyRegistry while no zone is loaded.
func (e *Engine) Health() error {
	return e.reg.Health()
}

func validateLocation(lat, lon float64) (models.Location, error) {
	loc := models.Location{Lat: lat, Lon: lon}
	if !loc.Valid() {
		return loc, eris.Wrapf(ErrInvalidCoordinate, "engine: lat=%v lon=%v", lat, lon)
	}
	return loc, nil
}

func validateRadius(meters float64) error {
	if meters < 0 || math.IsNaN(meters) {
		return eris.Wrapf(ErrInvalidRadius, "engine: radius %v", meters)
	}
	return nil
}
