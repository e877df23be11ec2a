package rtree

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/dhconnelly/rtreego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geofence/pkg/models"
)

func box(minLat, minLon, maxLat, maxLon float64) models.BoundingBox {
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: minLat, Lon: minLon},
		TopRight:   models.Location{Lat: maxLat, Lon: maxLon},
	}
}

func TestNewZoneIndex(t *testing.T) {
	index, err := NewZoneIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, index.Count())
	assert.Empty(t, index.CandidatesContaining(models.Location{Lat: 1, Lon: 1}))
	assert.Empty(t, index.CandidatesWithin(models.Location{Lat: 1, Lon: 1}, 1e6))
}

func TestZoneBoxBounds(t *testing.T) {
	b := box(37.70, -122.52, 37.83, -122.35)
	rect, err := toRect(b)
	require.NoError(t, err)

	var item rtreego.Spatial = &zoneBox{idx: 0, box: b, rect: rect}
	bounds := item.Bounds()
	require.NotNil(t, bounds)
	assert.InDelta(t, 37.70, bounds.PointCoord(0), 1e-12)
	assert.InDelta(t, -122.52, bounds.PointCoord(1), 1e-12)
	assert.InDelta(t, 37.83, bounds.LengthsCoord(0)+bounds.PointCoord(0), 1e-9)
	assert.InDelta(t, -122.35, bounds.LengthsCoord(1)+bounds.PointCoord(1), 1e-9)

	degenerate, err := toRect(box(10, 10, 10, 10))
	require.NoError(t, err)
	assert.Greater(t, degenerate.LengthsCoord(0), 0.0)
	assert.Greater(t, degenerate.LengthsCoord(1), 0.0)
}

func TestCandidatesContaining(t *testing.T) {
	boxes := []models.BoundingBox{
		box(37.70, -122.52, 37.83, -122.35), // San Francisco
		box(33.70, -118.67, 34.34, -118.15), // Los Angeles
		box(37.00, -123.00, 38.50, -121.00), // Bay Area, overlaps SF
		box(40.50, -74.26, 40.92, -73.70),   // New York
		box(10, 10, 10, 10),                 // degenerate
	}

	index, err := NewZoneIndex(boxes)
	require.NoError(t, err)
	assert.Equal(t, 5, index.Count())

	testCases := []struct {
		name     string
		loc      models.Location
		expected []int
	}{
		{"inside SF and Bay Area", models.Location{Lat: 37.7749, Lon: -122.4194}, []int{0, 2}},
		{"inside LA", models.Location{Lat: 34.0522, Lon: -118.2437}, []int{1}},
		{"Bay Area only", models.Location{Lat: 37.3382, Lon: -121.8863}, []int{2}},
		{"on a box corner", models.Location{Lat: 40.50, Lon: -74.26}, []int{3}},
		{"degenerate box", models.Location{Lat: 10, Lon: 10}, []int{4}},
		{"nowhere", models.Location{Lat: 0, Lon: 0}, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := index.CandidatesContaining(tc.loc)
			assert.ElementsMatch(t, tc.expected, got)
		})
	}
}

func TestCandidatesWithin(t *testing.T) {
	boxes := []models.BoundingBox{
		box(0, 0, 1, 1),
		box(0, 3, 1, 4),
		box(0, 179.5, 1, 180),
	}
	index, err := NewZoneIndex(boxes)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		center   models.Location
		radius   float64
		expected []int
	}{
		{"small radius", models.Location{Lat: 0.5, Lon: 1.5}, 10000, []int{}},
		{"reaches the first box", models.Location{Lat: 0.5, Lon: 1.5}, 60000, []int{0}},
		{"reaches both boxes", models.Location{Lat: 0.5, Lon: 2}, 120000, []int{0, 1}},
		{"across the antimeridian", models.Location{Lat: 0.5, Lon: -179.8}, 50000, []int{2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := index.CandidatesWithin(tc.center, tc.radius)
			assert.ElementsMatch(t, tc.expected, got)
		})
	}
}

func TestCandidatesSorted(t *testing.T) {
	boxes := make([]models.BoundingBox, 200)
	for i := range boxes {
		boxes[i] = box(-1, -1, 1, 1)
	}
	index, err := NewZoneIndex(boxes)
	require.NoError(t, err)

	got := index.CandidatesContaining(models.Location{Lat: 0, Lon: 0})
	require.Len(t, got, 200)
	for i := range got {
		assert.Equal(t, i, got[i])
	}
}

func TestNoFalseNegatives(t *testing.T) {
	boxes := generateRandomBoxes(5000)
	index, err := NewZoneIndex(boxes)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		loc := models.Location{Lat: rand.Float64()*20 + 30, Lon: rand.Float64()*40 - 120}
		got := make(map[int]bool)
		for _, idx := range index.CandidatesContaining(loc) {
			got[idx] = true
		}
		for j, b := range boxes {
			if b.Contains(loc) {
				assert.True(t, got[j], "box %d contains %v", j, loc)
			}
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	index, err := NewZoneIndex(generateRandomBoxes(10000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			center := models.Location{Lat: rand.Float64()*20 + 30, Lon: rand.Float64()*40 - 120}
			if rand.Intn(2) == 0 {
				_ = index.CandidatesContaining(center)
			} else {
				_ = index.CandidatesWithin(center, rand.Float64()*100000+1000)
			}
		}()
	}
	wg.Wait()
}

// Helper function to generate random zone boxes of up to ~5km
func generateRandomBoxes(n int) []models.BoundingBox {
	boxes := make([]models.BoundingBox, n)
	for i := 0; i < n; i++ {
		lat := rand.Float64()*20 + 30  // 30-50
		lon := rand.Float64()*40 - 120 // -120 to -80
		boxes[i] = box(lat, lon, lat+rand.Float64()*0.05, lon+rand.Float64()*0.05)
	}
	return boxes
}

// Benchmarks
func BenchmarkNewZoneIndex(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%d_zones", size), func(b *testing.B) {
			boxes := generateRandomBoxes(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = NewZoneIndex(boxes)
			}
		})
	}
}

func BenchmarkCandidatesContaining(b *testing.B) {
	index, _ := NewZoneIndex(generateRandomBoxes(100000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = index.CandidatesContaining(models.Location{Lat: 37.5, Lon: -112.5})
	}
}

func BenchmarkCandidatesWithin(b *testing.B) {
	index, _ := NewZoneIndex(generateRandomBoxes(100000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = index.CandidatesWithin(models.Location{Lat: 37.5, Lon: -112.5}, 50000)
	}
}
