package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-sync/internal/store"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends a condition; each %s in cond is replaced by the placeholder of
// the single argument.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "%s", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func limitClause(limit, offset int) string {
	return " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
}

func (w *where) page(opts store.ListOptions) string {
	if opts.PerPage <= 0 {
		return ""
	}
	return limitClause(opts.PerPage, opts.Offset())
}

// common applies the filters shared by every entity table aliased as t.
func (w *where) common(f store.Filter) {
	if f.ExternalID != "" {
		w.add("t.external_id = %s", f.ExternalID)
	}
	if f.Search != "" {
		w.add("t.name ILIKE '%' || %s || '%'", f.Search)
	}
}

// list runs the count and the page query for one entity table.
func list[T any](ctx context.Context, s *Store, kind store.Kind, cols, from string, w *where, opts store.ListOptions, scan func(pgx.Rows) (T, error)) ([]T, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+from+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind, err)
	}

	rows, err := s.pool.Query(ctx, "SELECT "+cols+" FROM "+from+w.sql()+" ORDER BY t.id"+w.page(opts), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// --------------------------------------------------------------------------
// Entity lists
// --------------------------------------------------------------------------

func (s *Store) ListCountries(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.Country, int, error) {
	var w where
	w.common(f)
	cols := `t.id, t.external_id, t.name, COALESCE(t.official_name, ''), COALESCE(t.iso2, ''),
		COALESCE(t.iso3, ''), COALESCE(t.image_path, ''),
		(SELECT COUNT(*)::int FROM leagues l WHERE l.country_id = t.id), t.created_at, t.updated_at`
	return list(ctx, s, store.KindCountries, cols, "countries t", &w, opts, func(r pgx.Rows) (store.Country, error) {
		var c store.Country
		err := r.Scan(&c.ID, &c.ExternalID, &c.Name, &c.OfficialName, &c.ISO2, &c.ISO3, &c.ImagePath,
			&c.LeagueCount, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
}

func (s *Store) ListLeagues(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.League, int, error) {
	var w where
	w.common(f)
	if f.CountryID != nil {
		w.add("t.country_id = %s", *f.CountryID)
	}
	cols := `t.id, t.external_id, t.country_id, COALESCE(c.external_id, ''), t.name,
		COALESCE(t.short_code, ''), COALESCE(t.type, ''), COALESCE(t.image_path, ''), t.active,
		t.created_at, t.updated_at`
	from := "leagues t LEFT JOIN countries c ON c.id = t.country_id"
	return list(ctx, s, store.KindLeagues, cols, from, &w, opts, func(r pgx.Rows) (store.League, error) {
		var l store.League
		err := r.Scan(&l.ID, &l.ExternalID, &l.CountryID, &l.CountryExternalID, &l.Name,
			&l.ShortCode, &l.Type, &l.ImagePath, &l.Active, &l.CreatedAt, &l.UpdatedAt)
		return l, err
	})
}

func (s *Store) ListSeasons(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.Season, int, error) {
	var w where
	w.common(f)
	if f.LeagueID != nil {
		w.add("t.league_id = %s", *f.LeagueID)
	}
	if len(f.SeasonExternalIDs) > 0 {
		w.add("t.external_id = ANY(%s)", f.SeasonExternalIDs)
	}
	cols := `t.id, t.external_id, t.league_id, l.external_id, t.name, t.is_current, t.finished,
		t.pending, t.starting_at, t.ending_at, t.created_at, t.updated_at`
	from := "seasons t JOIN leagues l ON l.id = t.league_id"
	return list(ctx, s, store.KindSeasons, cols, from, &w, opts, func(r pgx.Rows) (store.Season, error) {
		var se store.Season
		err := r.Scan(&se.ID, &se.ExternalID, &se.LeagueID, &se.LeagueExternalID, &se.Name,
			&se.IsCurrent, &se.Finished, &se.Pending, &se.StartingAt, &se.EndingAt,
			&se.CreatedAt, &se.UpdatedAt)
		return se, err
	})
}

func (s *Store) ListTeams(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.Team, int, error) {
	var w where
	w.common(f)
	if f.CountryID != nil {
		w.add("t.country_id = %s", *f.CountryID)
	}
	cols := `t.id, t.external_id, t.country_id, COALESCE(c.external_id, ''), t.name,
		COALESCE(t.short_code, ''), COALESCE(t.type, ''), COALESCE(t.image_path, ''),
		COALESCE(t.founded, 0), t.created_at, t.updated_at`
	from := "teams t LEFT JOIN countries c ON c.id = t.country_id"
	return list(ctx, s, store.KindTeams, cols, from, &w, opts, func(r pgx.Rows) (store.Team, error) {
		var tm store.Team
		err := r.Scan(&tm.ID, &tm.ExternalID, &tm.CountryID, &tm.CountryExternalID, &tm.Name,
			&tm.ShortCode, &tm.Type, &tm.ImagePath, &tm.Founded, &tm.CreatedAt, &tm.UpdatedAt)
		return tm, err
	})
}

func (s *Store) ListFixtures(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.Fixture, int, error) {
	var w where
	if f.ExternalID != "" {
		w.add("t.external_id = %s", f.ExternalID)
	}
	if f.Search != "" {
		w.add("COALESCE(t.name, '') ILIKE '%' || %s || '%'", f.Search)
	}
	if f.LeagueID != nil {
		w.add("t.league_id = %s", *f.LeagueID)
	}
	if len(f.SeasonExternalIDs) > 0 {
		w.add("se.external_id = ANY(%s)", f.SeasonExternalIDs)
	}
	if f.From != nil {
		w.add("t.starting_at >= %s", *f.From)
	}
	if f.To != nil {
		w.add("t.starting_at <= %s", *f.To)
	}
	cols := `t.id, t.external_id, t.league_id, COALESCE(l.external_id, ''), t.season_id, se.external_id,
		t.home_team_id, h.external_id, t.away_team_id, a.external_id, COALESCE(t.name, ''),
		t.starting_at, COALESCE(t.state, ''), COALESCE(t.result_info, ''), t.home_score, t.away_score,
		t.created_at, t.updated_at`
	from := `fixtures t
		JOIN seasons se ON se.id = t.season_id
		JOIN teams h ON h.id = t.home_team_id
		JOIN teams a ON a.id = t.away_team_id
		LEFT JOIN leagues l ON l.id = t.league_id`
	return list(ctx, s, store.KindFixtures, cols, from, &w, opts, func(r pgx.Rows) (store.Fixture, error) {
		var fx store.Fixture
		err := r.Scan(&fx.ID, &fx.ExternalID, &fx.LeagueID, &fx.LeagueExternalID, &fx.SeasonID, &fx.SeasonExternalID,
			&fx.HomeTeamID, &fx.HomeTeamExternalID, &fx.AwayTeamID, &fx.AwayTeamExternalID, &fx.Name,
			&fx.StartingAt, &fx.State, &fx.ResultInfo, &fx.HomeScore, &fx.AwayScore,
			&fx.CreatedAt, &fx.UpdatedAt)
		return fx, err
	})
}

func (s *Store) ListBookmakers(ctx context.Context, f store.Filter, opts store.ListOptions) ([]store.Bookmaker, int, error) {
	var w where
	w.common(f)
	cols := "t.id, t.external_id, t.name, t.created_at, t.updated_at"
	return list(ctx, s, store.KindBookmakers, cols, "bookmakers t", &w, opts, func(r pgx.Rows) (store.Bookmaker, error) {
		var b store.Bookmaker
		err := r.Scan(&b.ID, &b.ExternalID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	})
}
