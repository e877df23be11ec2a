package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_checks_total",
		Help: "Containment checks by result (contained, clear, error)",
	}, []string{"result"})
	CheckDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geofence_check_duration_ms",
		Help:    "Containment check duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 50},
	})
	NearestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_nearest_total",
		Help: "Nearest-zone queries by result (found, none, error)",
	}, []string{"result"})
	NearestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geofence_nearest_duration_ms",
		Help:    "Nearest-zone query duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 50},
	})
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geofence_batch_size",
		Help:    "Locations per batch check",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
	})
	ReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_reloads_total",
		Help: "Zone reloads by status (ok, failed)",
	}, []string{"status"})
	ZonesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geofence_zones_loaded",
		Help: "Zones in the active snapshot",
	})
	RejectedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geofence_rejected_records",
		Help: "Records rejected while building the active snapshot",
	})
)

func init() {
	prometheus.MustRegister(ChecksTotal)
	prometheus.MustRegister(CheckDurationMs)
	prometheus.MustRegister(NearestTotal)
	prometheus.MustRegister(NearestDurationMs)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(ReloadsTotal)
	prometheus.MustRegister(ZonesLoaded)
	prometheus.MustRegister(RejectedRecords)
}

// SinceMs returns the time elapsed since start in fractional milliseconds
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// Handler exposes the registered metrics for scraping
func Handler() http.Handler { return promhttp.Handler() }
