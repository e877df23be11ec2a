package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geojson", cfg.Zones.Source)
	assert.Equal(t, "data/zones.geojson", cfg.Zones.Path)
	assert.InDelta(t, 50.0, cfg.Zones.BufferMeters, 0.001)
	assert.Equal(t, 0, cfg.Zones.ReloadIntervalSecs)
	assert.InDelta(t, 1000.0, cfg.Nearest.InitialRadiusMeters, 0.001)
	assert.InDelta(t, 5000.0, cfg.Nearest.MaxDistanceMeters, 0.001)
	assert.Equal(t, 1000, cfg.Batch.MaxItems)
	assert.Equal(t, "zones", cfg.PostGIS.Table)
	assert.Equal(t, "geofence:reload", cfg.Redis.Channel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
zones:
  source: shapefile
  path: /data/prisons.shp
  buffer_meters: 75
  id_field: OSM_ID
log:
  level: debug
  format: console
batch:
  workers: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shapefile", cfg.Zones.Source)
	assert.Equal(t, "/data/prisons.shp", cfg.Zones.Path)
	assert.InDelta(t, 75.0, cfg.Zones.BufferMeters, 0.001)
	assert.Equal(t, "OSM_ID", cfg.Zones.IDField)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Batch.Workers)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEOFENCE_ZONES_BUFFER_METERS", "120")
	t.Setenv("GEOFENCE_REDIS_ADDR", "localhost:6379")
	t.Setenv("GEOFENCE_ZONES_SOURCE", "postgis")
	t.Setenv("GEOFENCE_POSTGIS_DATABASE_URL", "postgres://localhost/geo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 120.0, cfg.Zones.BufferMeters, 0.001)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgis", cfg.Zones.Source)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Zones.Source = "kml" }},
		{"missing path", func(c *Config) { c.Zones.Path = "" }},
		{"postgis without url", func(c *Config) { c.Zones.Source = "postgis" }},
		{"negative buffer", func(c *Config) { c.Zones.BufferMeters = -1 }},
		{"negative max distance", func(c *Config) { c.Nearest.MaxDistanceMeters = -5 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Zones: ZonesConfig{Source: "geojson", Path: "zones.geojson"}}
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
