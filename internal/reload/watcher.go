// Package reload keeps the zone registry in sync with its source.
package reload

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/source"
)

// Target receives freshly loaded records. *engine.Engine satisfies it.
type Target interface {
	Reload(records []models.ZoneRecord, bufferMeters float64) error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval reloads on a fixed period. Zero disables periodic reloads.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithFile skips periodic reloads while path keeps the modification time
// it had at the last successful reload. Manual triggers always reload.
func WithFile(path string) Option {
	return func(w *Watcher) {
		w.path = path
	}
}

// Watcher reloads zones periodically or on demand. A failed reload is
// logged and the active snapshot is kept.
type Watcher struct {
	src      source.Source
	target   Target
	buffer   float64
	interval time.Duration
	path     string

	trigger chan struct{}

	mu      sync.Mutex
	modTime time.Time
	reloads int
	fails   int
}

// New creates a Watcher that loads from src into target.
func New(src source.Source, target Target, bufferMeters float64, opts ...Option) *Watcher {
	w := &Watcher{
		src:     src,
		target:  target,
		buffer:  bufferMeters,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.path != "" {
		w.modTime = fileModTime(w.path)
	}
	return w
}

// Trigger schedules a reload. Triggers that arrive while one is pending are
// coalesced.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// ReloadNow loads the source and swaps the target's zones.
func (w *Watcher) ReloadNow(ctx context.Context) error {
	start := time.Now()
	var mod time.Time
	if w.path != "" {
		mod = fileModTime(w.path)
	}
	records, err := w.src.Load(ctx)
	if err == nil {
		err = w.target.Reload(records, w.buffer)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.fails++
		metrics.ReloadsTotal.WithLabelValues("failed").Inc()
		return eris.Wrap(err, "reload: failed")
	}
	w.reloads++
	if !mod.IsZero() {
		w.modTime = mod
	}
	metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	zap.L().Info("reload: zones reloaded",
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Counts returns the number of successful and failed reloads.
func (w *Watcher) Counts() (reloads, fails int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads, w.fails
}

// Run blocks until ctx is done, reloading on every tick and trigger.
func (w *Watcher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	zap.L().Info("reload: watcher started",
		zap.Duration("interval", w.interval),
		zap.String("path", w.path),
	)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("reload: watcher stopped")
			return nil
		case <-tick:
			if !w.changed() {
				continue
			}
			w.run(ctx)
		case <-w.trigger:
			w.run(ctx)
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	if err := w.ReloadNow(ctx); err != nil {
		zap.L().Error("reload: keeping previous zones", zap.Error(err))
	}
}

// changed reports whether the watched file moved on since the last
// successful reload. Without a file every tick counts as a change.
func (w *Watcher) changed() bool {
	if w.path == "" {
		return true
	}
	mod := fileModTime(w.path)

	w.mu.Lock()
	defer w.mu.Unlock()
	return !mod.IsZero() && !mod.Equal(w.modTime)
}

func fileModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
