// Package postgres implements store.Store on pgx. Entity upserts and batch
// writes go through the statements prepared by internal/db; list queries are
// built per filter.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/scoracle-sync/internal/db"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// Store is the Postgres-backed store.Store.
type Store struct {
	pool   *db.Pool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps a pool created by db.New.
func New(pool *db.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

// --------------------------------------------------------------------------
// Upserts
// --------------------------------------------------------------------------

func (s *Store) UpsertCountry(ctx context.Context, in store.CountryInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_country",
		in.ExternalID, in.Name, nilEmpty(in.OfficialName), nilEmpty(in.ISO2), nilEmpty(in.ISO3), nilEmpty(in.ImagePath))
}

func (s *Store) UpsertLeague(ctx context.Context, in store.LeagueInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_league",
		in.ExternalID, in.CountryID, in.Name, nilEmpty(in.ShortCode), nilEmpty(in.Type), nilEmpty(in.ImagePath), in.Active)
}

func (s *Store) UpsertSeason(ctx context.Context, in store.SeasonInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_season",
		in.ExternalID, in.LeagueID, in.Name, in.IsCurrent, in.Finished, in.Pending, in.StartingAt, in.EndingAt)
}

func (s *Store) UpsertTeam(ctx context.Context, in store.TeamInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_team",
		in.ExternalID, in.CountryID, in.Name, nilEmpty(in.ShortCode), nilEmpty(in.Type), nilEmpty(in.ImagePath), nilZero(in.Founded))
}

func (s *Store) UpsertFixture(ctx context.Context, in store.FixtureInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_fixture",
		in.ExternalID, in.LeagueID, in.SeasonID, in.HomeTeamID, in.AwayTeamID, nilEmpty(in.Name),
		in.StartingAt, nilEmpty(in.State), nilEmpty(in.ResultInfo), in.HomeScore, in.AwayScore)
}

func (s *Store) UpsertBookmaker(ctx context.Context, in store.BookmakerInput) (store.UpsertResult, error) {
	return s.upsert(ctx, "upsert_bookmaker", in.ExternalID, in.Name)
}

// upsert runs a prepared upsert. No returned row means the conflict update
// was skipped because nothing differed.
func (s *Store) upsert(ctx context.Context, stmt string, args ...any) (store.UpsertResult, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, stmt, args...).Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return store.Unchanged, nil
	case err != nil:
		return "", mapError(err)
	case inserted:
		return store.Inserted, nil
	default:
		return store.Updated, nil
	}
}

// ExternalIDs maps every external id of a kind to its local id.
func (s *Store) ExternalIDs(ctx context.Context, kind store.Kind) (map[string]int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, "SELECT external_id, id FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("load %s ids: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var ext string
		var id int64
		if err := rows.Scan(&ext, &id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind, err)
		}
		out[ext] = id
	}
	return out, rows.Err()
}

func tableFor(kind store.Kind) (string, error) {
	for _, k := range store.Kinds {
		if k == kind {
			return string(k), nil
		}
	}
	return "", fmt.Errorf("%w: %q", store.ErrUnknownKind, kind)
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

const batchColumns = "id, name, status, trigger, started_at, finished_at, items_total, items_success, items_failed"

func (s *Store) CreateBatch(ctx context.Context, name string, trigger store.Trigger) (store.Batch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, "batch_create", name, string(trigger)))
	if err != nil {
		return store.Batch{}, fmt.Errorf("create batch %q: %w", name, mapError(err))
	}
	return b, nil
}

func (s *Store) AppendBatchItem(ctx context.Context, item store.BatchItem) error {
	meta := item.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode item meta: %w", err)
	}
	tag, err := s.pool.Exec(ctx, "batch_item_insert",
		item.BatchID, item.ItemKey, string(item.Status), item.ErrorMessage, raw)
	if err != nil {
		return fmt.Errorf("append batch item: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetBatch(ctx, item.BatchID); err != nil {
			return err
		}
		return store.ErrBatchFinalized
	}
	return nil
}

func (s *Store) FinalizeBatch(ctx context.Context, batchID int64) (store.Batch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, "batch_finalize", batchID))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.GetBatch(ctx, batchID)
		if getErr != nil {
			return store.Batch{}, getErr
		}
		return existing, store.ErrBatchFinalized
	}
	if err != nil {
		return store.Batch{}, fmt.Errorf("finalize batch %d: %w", batchID, err)
	}
	return b, nil
}

func (s *Store) GetBatch(ctx context.Context, batchID int64) (store.Batch, error) {
	b, err := scanBatch(s.pool.QueryRow(ctx, "batch_get", batchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Batch{}, store.ErrNotFound
	}
	if err != nil {
		return store.Batch{}, fmt.Errorf("get batch %d: %w", batchID, err)
	}
	return b, nil
}

func (s *Store) ListBatches(ctx context.Context, name string, limit int) ([]store.Batch, error) {
	var w where
	if name != "" {
		w.add("name = %s", name)
	}
	sql := "SELECT " + batchColumns + " FROM batches" + w.sql() + " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		sql += limitClause(limit, 0)
	}
	rows, err := s.pool.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []store.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ListBatchItems(ctx context.Context, batchID int64, opts store.ListOptions) ([]store.BatchItem, int, error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return nil, 0, err
	}
	var w where
	w.add("batch_id = %s", batchID)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM batch_items"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batch items: %w", err)
	}

	sql := "SELECT id, batch_id, item_key, status, error_message, meta, created_at FROM batch_items" +
		w.sql() + " ORDER BY id" + w.page(opts)
	rows, err := s.pool.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list batch items: %w", err)
	}
	defer rows.Close()

	out := []store.BatchItem{}
	for rows.Next() {
		var it store.BatchItem
		var status string
		var meta []byte
		if err := rows.Scan(&it.ID, &it.BatchID, &it.ItemKey, &status, &it.ErrorMessage, &meta, &it.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan batch item: %w", err)
		}
		it.Status = store.ItemStatus(status)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &it.Meta); err != nil {
				s.logger.Warn("Undecodable batch item meta", "item_id", it.ID, "error", err)
			}
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func scanBatch(row pgx.Row) (store.Batch, error) {
	var b store.Batch
	var status, trigger string
	err := row.Scan(&b.ID, &b.Name, &status, &trigger, &b.StartedAt, &b.FinishedAt,
		&b.ItemsTotal, &b.ItemsSuccess, &b.ItemsFailed)
	b.Status = store.BatchStatus(status)
	b.Trigger = store.Trigger(trigger)
	return b, err
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// mapError turns integrity violations into *store.ConstraintError and leaves
// everything else untouched.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505", // unique_violation
		"23503", // foreign_key_violation
		"23502", // not_null_violation
		"23514": // check_violation
		detail := pgErr.Detail
		if detail == "" {
			detail = pgErr.Message
		}
		return &store.ConstraintError{Constraint: pgErr.ConstraintName, Detail: detail, Err: err}
	}
	return err
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
