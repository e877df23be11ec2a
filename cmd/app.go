package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/internal/config"
	"github.com/kass/go-geofence/pkg/engine"
	"github.com/kass/go-geofence/pkg/postgis"
	"github.com/kass/go-geofence/pkg/source"
	"github.com/kass/go-geofence/pkg/zones"
)

// buildSource returns the configured zone source and a function releasing
// any connection it holds.
func buildSource(ctx context.Context, c *config.Config) (source.Source, func(), error) {
	noop := func() {}

	switch c.Zones.Source {
	case "geojson":
		return source.GeoJSONFile{Path: c.Zones.Path}, noop, nil
	case "shapefile":
		return source.Shapefile{
			Path:          c.Zones.Path,
			IDField:       c.Zones.IDField,
			NameField:     c.Zones.NameField,
			OperatorField: c.Zones.OperatorField,
			RegionField:   c.Zones.RegionField,
		}, noop, nil
	case "gob":
		return source.GobFile{Path: c.Zones.Path}, noop, nil
	case "postgis":
		store, err := postgis.Connect(ctx, c.PostGIS.DatabaseURL, c.PostGIS.Table)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}
	return nil, noop, eris.Errorf("unknown zone source %q", c.Zones.Source)
}

// loadEngine loads the configured zones and builds an engine over them.
func loadEngine(ctx context.Context, c *config.Config) (*engine.Engine, source.Source, func(), error) {
	src, cleanup, err := buildSource(ctx, c)
	if err != nil {
		return nil, nil, cleanup, err
	}

	start := time.Now()
	records, err := src.Load(ctx)
	if err != nil {
		return nil, nil, cleanup, eris.Wrap(err, "load zones")
	}

	reg, err := zones.NewRegistry(records, c.Zones.BufferMeters)
	if err != nil {
		return nil, nil, cleanup, eris.Wrap(err, "build registry")
	}

	zap.L().Info("zones loaded",
		zap.String("source", c.Zones.Source),
		zap.Int("records", len(records)),
		zap.Int("zones", reg.Snapshot().Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	eng := engine.New(reg,
		engine.WithWorkers(c.Batch.Workers),
		engine.WithInitialRadius(c.Nearest.InitialRadiusMeters),
		engine.WithMaxBatch(c.Batch.MaxItems),
	)
	return eng, src, cleanup, nil
}
