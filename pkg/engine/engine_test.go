package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/zones"
)

func square(minLat, minLon, maxLat, maxLon float64) [][]models.Location {
	return [][]models.Location{{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: minLat, Lon: minLon},
	}}
}

func newEngine(t testing.TB, records []models.ZoneRecord, buffer float64, opts ...Option) *Engine {
	t.Helper()
	reg, err := zones.NewRegistry(records, buffer)
	require.NoError(t, err)
	return New(reg, opts...)
}

func TestCheckUnitSquare(t *testing.T) {
	e := newEngine(t, []models.ZoneRecord{{ID: "A", Name: "Unit", Boundary: square(0, 0, 1, 1)}}, 0)
	ctx := context.Background()

	testCases := []struct {
		name      string
		lat, lon  float64
		contained bool
	}{
		{"center", 0.5, 0.5, true},
		{"on edge", 0, 0.5, true},
		{"on vertex", 1, 1, true},
		{"outside", 2, 2, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Check(ctx, tc.lat, tc.lon)
			require.NoError(t, err)
			assert.Equal(t, tc.contained, res.Contained)
			if tc.contained {
				require.NotNil(t, res.Zone)
				assert.Equal(t, "A", res.Zone.ID)
				assert.Equal(t, "Unit", res.Zone.Name)
				assert.Equal(t, models.RiskHigh, res.RiskLevel)
				assert.Equal(t, models.ActionBlock, res.Action)
			} else {
				assert.Nil(t, res.Zone)
				assert.Equal(t, models.RiskLow, res.RiskLevel)
				assert.Equal(t, models.ActionAllow, res.Action)
			}
			assert.Equal(t, e.Registry().Snapshot().Version(), res.SnapshotVersion)
		})
	}
}

func TestCheckBufferGrowth(t *testing.T) {
	records := []models.ZoneRecord{{ID: "A", Boundary: square(0, 0, 1, 1)}}
	e := newEngine(t, records, 0)
	ctx := context.Background()

	res, err := e.Check(ctx, 0.5, 1.5)
	require.NoError(t, err)
	assert.False(t, res.Contained)

	require.NoError(t, e.Rebuffer(100000))
	res, err = e.Check(ctx, 0.5, 1.5)
	require.NoError(t, err)
	assert.True(t, res.Contained)

	// (2, 2) is ~157km from the nearest corner
	res, err = e.Check(ctx, 2, 2)
	require.NoError(t, err)
	assert.False(t, res.Contained)

	require.NoError(t, e.Rebuffer(200000))
	res, err = e.Check(ctx, 2, 2)
	require.NoError(t, err)
	assert.True(t, res.Contained)
}

func TestCheckEmptyRegistry(t *testing.T) {
	e := newEngine(t, nil, 50)

	res, err := e.Check(context.Background(), 0.5, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Contained)
	assert.Equal(t, models.ActionAllow, res.Action)
	assert.True(t, eris.Is(e.Health(), zones.ErrEmptyRegistry))
	assert.True(t, e.Stats().Degraded)

	near, err := e.Nearest(context.Background(), 0.5, 0.5, math.Inf(1))
	require.NoError(t, err)
	assert.Nil(t, near)
}

func TestCheckOverlapLowestID(t *testing.T) {
	e := newEngine(t, []models.ZoneRecord{
		{ID: "Z", Boundary: square(0, 0, 1, 1)},
		{ID: "B", Boundary: square(0.5, 0.5, 2, 2)},
		{ID: "M", Boundary: square(0.6, 0.6, 0.9, 0.9)},
	}, 0)

	res, err := e.Check(context.Background(), 0.75, 0.75)
	require.NoError(t, err)
	require.True(t, res.Contained)
	assert.Equal(t, "B", res.Zone.ID)
}

func TestCheckHole(t *testing.T) {
	rings := [][]models.Location{square(0, 0, 1, 1)[0], square(0.4, 0.4, 0.6, 0.6)[0]}
	e := newEngine(t, []models.ZoneRecord{{ID: "A", Boundary: rings}}, 0)

	res, err := e.Check(context.Background(), 0.5, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Contained)

	res, err = e.Check(context.Background(), 0.4, 0.5)
	require.NoError(t, err)
	assert.True(t, res.Contained, "hole edge belongs to the zone")
}

func TestCheckInvalidCoordinate(t *testing.T) {
	e := newEngine(t, []models.ZoneRecord{{ID: "A", Boundary: square(0, 0, 1, 1)}}, 0)

	for _, c := range [][2]float64{{91, 0}, {0, -181}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		_, err := e.Check(context.Background(), c[0], c[1])
		assert.True(t, eris.Is(err, ErrInvalidCoordinate), "lat=%v lon=%v", c[0], c[1])
	}
}

func TestCheckCustomPolicy(t *testing.T) {
	review := func(contained bool) (models.RiskLevel, models.Action) {
		if contained {
			return "MEDIUM", "REVIEW"
		}
		return models.RiskLow, models.ActionAllow
	}
	e := newEngine(t, []models.ZoneRecord{{ID: "A", Boundary: square(0, 0, 1, 1)}}, 0, WithPolicy(review))

	res, err := e.Check(context.Background(), 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevel("MEDIUM"), res.RiskLevel)
	assert.Equal(t, models.Action("REVIEW"), res.Action)
}

func TestCheckIdempotent(t *testing.T) {
	e := newEngine(t, generateZones(200), 50)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		lat, lon := rand.Float64()*2, rand.Float64()*2
		first, err := e.Check(ctx, lat, lon)
		require.NoError(t, err)
		second, err := e.Check(ctx, lat, lon)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestCheckCancelled(t *testing.T) {
	records := make([]models.ZoneRecord, 200)
	for i := range records {
		// rings that share a bounding box but not the probe point
		records[i] = models.ZoneRecord{ID: fmt.Sprintf("%d", i), Boundary: [][]models.Location{{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0},
		}}}
	}
	e := newEngine(t, records, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Check(ctx, 0.9, 0.1)
	assert.True(t, eris.Is(err, context.Canceled))
}

// generateZones returns n small square zones scattered over [0, 2]x[0, 2]
func generateZones(n int) []models.ZoneRecord {
	r := rand.New(rand.NewSource(42))
	records := make([]models.ZoneRecord, n)
	for i := range records {
		lat, lon := r.Float64()*2, r.Float64()*2
		size := 0.005 + r.Float64()*0.02
		records[i] = models.ZoneRecord{
			ID:       fmt.Sprintf("%d", i+1),
			Region:   []string{"CA", "TX", "NY"}[i%3],
			Boundary: square(lat, lon, lat+size, lon+size),
		}
	}
	return records
}
