// Package postgis implements the grid source against a PostGIS table
// with a GiST index on the line geometry.
package postgis

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karttaworks/tile-grid-cache/internal/core/model"
	"github.com/karttaworks/tile-grid-cache/internal/core/observability"
	"github.com/karttaworks/tile-grid-cache/internal/gridpolicy"
)

// DB wraps the shared pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 32

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Source queries grid lines through the pool's spatial index.
type Source struct {
	db *DB
}

func NewSource(db *DB) *Source {
	return &Source{db: db}
}

// FetchLines selects every line of the policy's grid type whose geometry
// intersects the envelope, with style attributes attached per policy.
// The && operator keeps the query on the GiST index.
func (s *Source) FetchLines(
	ctx context.Context,
	envelope model.ViewportBounds,
	policy gridpolicy.Policy,
) ([]model.Feature, error) {
	start := time.Now()
	rows, err := s.db.Pool.Query(ctx, `
		SELECT name, color,
		       ST_Y(ST_StartPoint(geom)) AS start_lat,
		       ST_X(ST_StartPoint(geom)) AS start_lng,
		       ST_Y(ST_EndPoint(geom))   AS end_lat,
		       ST_X(ST_EndPoint(geom))   AS end_lng
		FROM grid_lines
		WHERE grid_type = $1
		  AND geom && ST_MakeEnvelope($2, $3, $4, $5, 4326)
		ORDER BY name
	`, string(policy.Type), envelope.West, envelope.South, envelope.East, envelope.North)
	observability.ObserveUpstreamLatency("postgis", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("query grid_lines %s: %w", policy.Type, err)
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		var color string
		if err := rows.Scan(&f.Name, &color, &f.Start.Lat, &f.Start.Lng, &f.End.Lat, &f.End.Lng); err != nil {
			return nil, fmt.Errorf("scan grid line: %w", err)
		}
		f.GridType = string(policy.Type)
		f.Style = policy.Style
		if color != "" {
			f.Style.Color = color
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grid_lines: %w", err)
	}
	return out, nil
}
