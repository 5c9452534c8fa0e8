// Package db provides a pgxpool-based connection pool with prepared statement
// registration, health checking and the reference schema.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-sync/internal/config"
)

// Schema is the reference DDL for every table the sync service writes.
//
//go:embed schema.sql
var Schema string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// ApplySchema executes the reference DDL on a plain connection. Pools created
// by New prepare statements against these tables, so apply it first.
func ApplySchema(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// registerPreparedStatements registers the fixed statements the store uses.
// Upserts only touch a row when a compared column differs; RETURNING
// (xmax = 0) tells an insert from an update and no row means unchanged.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Entity upserts
		"upsert_country": `
			INSERT INTO countries (external_id, name, official_name, iso2, iso3, image_path)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (external_id) DO UPDATE SET
				name = EXCLUDED.name,
				official_name = EXCLUDED.official_name,
				iso2 = EXCLUDED.iso2,
				iso3 = EXCLUDED.iso3,
				image_path = EXCLUDED.image_path,
				updated_at = NOW()
			WHERE (countries.name, countries.official_name, countries.iso2, countries.iso3, countries.image_path)
				IS DISTINCT FROM (EXCLUDED.name, EXCLUDED.official_name, EXCLUDED.iso2, EXCLUDED.iso3, EXCLUDED.image_path)
			RETURNING (xmax = 0)`,
		"upsert_league": `
			INSERT INTO leagues (external_id, country_id, name, short_code, type, image_path, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (external_id) DO UPDATE SET
				country_id = EXCLUDED.country_id,
				name = EXCLUDED.name,
				short_code = EXCLUDED.short_code,
				type = EXCLUDED.type,
				image_path = EXCLUDED.image_path,
				active = EXCLUDED.active,
				updated_at = NOW()
			WHERE (leagues.country_id, leagues.name, leagues.short_code, leagues.type, leagues.image_path, leagues.active)
				IS DISTINCT FROM (EXCLUDED.country_id, EXCLUDED.name, EXCLUDED.short_code, EXCLUDED.type, EXCLUDED.image_path, EXCLUDED.active)
			RETURNING (xmax = 0)`,
		"upsert_season": `
			INSERT INTO seasons (external_id, league_id, name, is_current, finished, pending, starting_at, ending_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (external_id) DO UPDATE SET
				league_id = EXCLUDED.league_id,
				name = EXCLUDED.name,
				is_current = EXCLUDED.is_current,
				finished = EXCLUDED.finished,
				pending = EXCLUDED.pending,
				starting_at = EXCLUDED.starting_at,
				ending_at = EXCLUDED.ending_at,
				updated_at = NOW()
			WHERE (seasons.league_id, seasons.name, seasons.is_current, seasons.finished, seasons.pending, seasons.starting_at, seasons.ending_at)
				IS DISTINCT FROM (EXCLUDED.league_id, EXCLUDED.name, EXCLUDED.is_current, EXCLUDED.finished, EXCLUDED.pending, EXCLUDED.starting_at, EXCLUDED.ending_at)
			RETURNING (xmax = 0)`,
		"upsert_team": `
			INSERT INTO teams (external_id, country_id, name, short_code, type, image_path, founded)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (external_id) DO UPDATE SET
				country_id = EXCLUDED.country_id,
				name = EXCLUDED.name,
				short_code = EXCLUDED.short_code,
				type = EXCLUDED.type,
				image_path = EXCLUDED.image_path,
				founded = EXCLUDED.founded,
				updated_at = NOW()
			WHERE (teams.country_id, teams.name, teams.short_code, teams.type, teams.image_path, teams.founded)
				IS DISTINCT FROM (EXCLUDED.country_id, EXCLUDED.name, EXCLUDED.short_code, EXCLUDED.type, EXCLUDED.image_path, EXCLUDED.founded)
			RETURNING (xmax = 0)`,
		"upsert_fixture": `
			INSERT INTO fixtures (external_id, league_id, season_id, home_team_id, away_team_id, name,
				starting_at, state, result_info, home_score, away_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (external_id) DO UPDATE SET
				league_id = EXCLUDED.league_id,
				season_id = EXCLUDED.season_id,
				home_team_id = EXCLUDED.home_team_id,
				away_team_id = EXCLUDED.away_team_id,
				name = EXCLUDED.name,
				starting_at = EXCLUDED.starting_at,
				state = EXCLUDED.state,
				result_info = EXCLUDED.result_info,
				home_score = EXCLUDED.home_score,
				away_score = EXCLUDED.away_score,
				updated_at = NOW()
			WHERE (fixtures.league_id, fixtures.season_id, fixtures.home_team_id, fixtures.away_team_id, fixtures.name,
					fixtures.starting_at, fixtures.state, fixtures.result_info, fixtures.home_score, fixtures.away_score)
				IS DISTINCT FROM (EXCLUDED.league_id, EXCLUDED.season_id, EXCLUDED.home_team_id, EXCLUDED.away_team_id, EXCLUDED.name,
					EXCLUDED.starting_at, EXCLUDED.state, EXCLUDED.result_info, EXCLUDED.home_score, EXCLUDED.away_score)
			RETURNING (xmax = 0)`,
		"upsert_bookmaker": `
			INSERT INTO bookmakers (external_id, name)
			VALUES ($1, $2)
			ON CONFLICT (external_id) DO UPDATE SET
				name = EXCLUDED.name,
				updated_at = NOW()
			WHERE bookmakers.name IS DISTINCT FROM EXCLUDED.name
			RETURNING (xmax = 0)`,

		// Batches
		"batch_create": `
			INSERT INTO batches (name, trigger) VALUES ($1, $2)
			RETURNING id, name, status, trigger, started_at, finished_at, items_total, items_success, items_failed`,
		"batch_get": `
			SELECT id, name, status, trigger, started_at, finished_at, items_total, items_success, items_failed
			FROM batches WHERE id = $1`,
		"batch_item_insert": `
			INSERT INTO batch_items (batch_id, item_key, status, error_message, meta)
			SELECT $1::bigint, $2::text, $3::text, $4::text, $5::jsonb
			WHERE EXISTS (SELECT 1 FROM batches WHERE id = $1::bigint AND finished_at IS NULL)`,
		"batch_finalize": `
			UPDATE batches b SET
				items_total = c.total,
				items_success = c.total - c.failed,
				items_failed = c.failed,
				status = CASE
					WHEN c.failed = 0 THEN 'success'
					WHEN c.failed >= c.total THEN 'failed'
					ELSE 'partial'
				END,
				finished_at = NOW()
			FROM (
				SELECT COUNT(*)::int AS total,
					COUNT(*) FILTER (WHERE status = 'failed')::int AS failed
				FROM batch_items WHERE batch_id = $1
			) c
			WHERE b.id = $1 AND b.finished_at IS NULL
			RETURNING b.id, b.name, b.status, b.trigger, b.started_at, b.finished_at,
				b.items_total, b.items_success, b.items_failed`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
