// Package postgis loads zones from, and stores zones into, a PostGIS table.
package postgis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/source"
)

// Pool is the subset of pgxpool.Pool used here
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// ZoneStore reads and writes zones in one table with columns
// id, name, operator, region and geom (MultiPolygon or Polygon, SRID 4326).
type ZoneStore struct {
	pool  Pool
	table string
}

// Connect opens a connection pool to the database
func Connect(ctx context.Context, connString, table string) (*ZoneStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: parse config")
	}

	// Set connection pool settings for better performance
	cfg.MaxConns = 25
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: create pool")
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgis: ping")
	}

	return New(pool, table), nil
}

// New wraps an existing pool
func New(pool Pool, table string) *ZoneStore {
	if table == "" {
		table = "zones"
	}
	return &ZoneStore{pool: pool, table: table}
}

func (s *ZoneStore) tableIdent() string {
	return pgx.Identifier(strings.Split(s.table, ".")).Sanitize()
}

// InitSchema creates the zone table and its spatial index
func (s *ZoneStore) InitSchema(ctx context.Context) error {
	table := s.tableIdent()
	indexName := pgx.Identifier{"idx_" + strings.ReplaceAll(s.table, ".", "_") + "_geom"}.Sanitize()

	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT,
			operator TEXT,
			region TEXT,
			geom GEOMETRY(GEOMETRY, 4326) NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIST(geom)`, indexName, table),
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return eris.Wrapf(err, "postgis: init schema")
		}
	}
	return nil
}

// Load implements source.Source
func (s *ZoneStore) Load(ctx context.Context) ([]models.ZoneRecord, error) {
	query := fmt.Sprintf(`
		SELECT id::text,
			COALESCE(name, ''),
			COALESCE(operator, ''),
			COALESCE(region, ''),
			ST_AsGeoJSON(geom)
		FROM %s
		ORDER BY id`, s.tableIdent())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: query zones")
	}
	defer rows.Close()

	var records []models.ZoneRecord
	for rows.Next() {
		var meta source.Metadata
		var geometry string
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Operator, &meta.Region, &geometry); err != nil {
			return nil, eris.Wrap(err, "postgis: scan zone")
		}

		var g geom.T
		if err := geojson.Unmarshal([]byte(geometry), &g); err != nil {
			zap.L().Debug("postgis: undecodable geometry", zap.String("id", meta.ID), zap.Error(err))
			g = nil
		}
		records = append(records, source.RecordsFromGeometry(meta, g)...)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: iterate zones")
	}

	return records, nil
}

// Upsert writes records in a single transaction
func (s *ZoneStore) Upsert(ctx context.Context, records []models.ZoneRecord) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, operator, region, geom)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), ST_SetSRID(ST_GeomFromGeoJSON($5), 4326))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			operator = EXCLUDED.operator,
			region = EXCLUDED.region,
			geom = EXCLUDED.geom`, s.tableIdent())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var written int
	for _, rec := range records {
		poly, err := source.RecordPolygon(rec)
		if err != nil {
			return written, eris.Wrapf(err, "postgis: zone %s", rec.ID)
		}
		encoded, err := geojson.Marshal(poly)
		if err != nil {
			return written, eris.Wrapf(err, "postgis: encode zone %s", rec.ID)
		}
		if _, err := tx.Exec(ctx, query, rec.ID, rec.Name, rec.Operator, rec.Region, string(encoded)); err != nil {
			return written, eris.Wrapf(err, "postgis: insert zone %s", rec.ID)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgis: commit")
	}
	return written, nil
}

// Close closes the connection pool
func (s *ZoneStore) Close() {
	s.pool.Close()
}
