// Package memory is an in-process store.Store used for local dry runs and
// tests. It enforces the same unique external ids and parent references as
// the Postgres schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/scoracle-sync/internal/store"
)

type row[T any] struct {
	id      int64
	ext     string
	val     T
	created time.Time
	updated time.Time
}

type table[T any] struct {
	seq   int64
	rows  map[string]*row[T]
	byID  map[int64]*row[T]
	equal func(a, b T) bool
}

func newTable[T any](equal func(a, b T) bool) *table[T] {
	return &table[T]{
		rows:  make(map[string]*row[T]),
		byID:  make(map[int64]*row[T]),
		equal: equal,
	}
}

func (t *table[T]) upsert(ext string, val T, now time.Time) store.UpsertResult {
	if r, ok := t.rows[ext]; ok {
		if t.equal(r.val, val) {
			return store.Unchanged
		}
		r.val = val
		r.updated = now
		return store.Updated
	}
	t.seq++
	r := &row[T]{id: t.seq, ext: ext, val: val, created: now, updated: now}
	t.rows[ext] = r
	t.byID[r.id] = r
	return store.Inserted
}

func (t *table[T]) sorted() []*row[T] {
	out := make([]*row[T], 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (t *table[T]) extOf(id int64) string {
	if r, ok := t.byID[id]; ok {
		return r.ext
	}
	return ""
}

func (t *table[T]) has(id int64) bool {
	_, ok := t.byID[id]
	return ok
}

func (t *table[T]) ids() map[string]int64 {
	out := make(map[string]int64, len(t.rows))
	for ext, r := range t.rows {
		out[ext] = r.id
	}
	return out
}

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	countries  *table[store.CountryInput]
	leagues    *table[store.LeagueInput]
	seasons    *table[store.SeasonInput]
	teams      *table[store.TeamInput]
	fixtures   *table[store.FixtureInput]
	bookmakers *table[store.BookmakerInput]

	batchSeq int64
	itemSeq  int64
	batches  []*store.Batch
	items    map[int64][]store.BatchItem
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		countries:  newTable(func(a, b store.CountryInput) bool { return a == b }),
		leagues:    newTable(equalLeague),
		seasons:    newTable(equalSeason),
		teams:      newTable(equalTeam),
		fixtures:   newTable(equalFixture),
		bookmakers: newTable(func(a, b store.BookmakerInput) bool { return a == b }),
		items:      make(map[int64][]store.BatchItem),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// --------------------------------------------------------------------------
// Lists
// --------------------------------------------------------------------------

func (s *Store) ListCountries(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.Country, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leagueCounts := make(map[int64]int)
	for _, l := range s.leagues.rows {
		if l.val.CountryID != nil {
			leagueCounts[*l.val.CountryID]++
		}
	}

	var out []store.Country
	for _, r := range s.countries.sorted() {
		if !matchExt(f, r.ext) || !matchSearch(f, r.val.Name) {
			continue
		}
		out = append(out, store.Country{
			ID: r.id, ExternalID: r.ext,
			Name: r.val.Name, OfficialName: r.val.OfficialName,
			ISO2: r.val.ISO2, ISO3: r.val.ISO3, ImagePath: r.val.ImagePath,
			LeagueCount: leagueCounts[r.id],
			CreatedAt:   r.created, UpdatedAt: r.updated,
		})
	}
	return page(out, opts)
}

func (s *Store) ListLeagues(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.League, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.League
	for _, r := range s.leagues.sorted() {
		if !matchExt(f, r.ext) || !matchSearch(f, r.val.Name) || !matchOptID(f.CountryID, r.val.CountryID) {
			continue
		}
		l := store.League{
			ID: r.id, ExternalID: r.ext, CountryID: r.val.CountryID,
			Name: r.val.Name, ShortCode: r.val.ShortCode, Type: r.val.Type,
			ImagePath: r.val.ImagePath, Active: r.val.Active,
			CreatedAt: r.created, UpdatedAt: r.updated,
		}
		if r.val.CountryID != nil {
			l.CountryExternalID = s.countries.extOf(*r.val.CountryID)
		}
		out = append(out, l)
	}
	return page(out, opts)
}

func (s *Store) ListSeasons(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.Season, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Season
	for _, r := range s.seasons.sorted() {
		if !matchExt(f, r.ext) || !matchSearch(f, r.val.Name) || !matchID(f.LeagueID, r.val.LeagueID) {
			continue
		}
		if len(f.SeasonExternalIDs) > 0 && !contains(f.SeasonExternalIDs, r.ext) {
			continue
		}
		out = append(out, store.Season{
			ID: r.id, ExternalID: r.ext,
			LeagueID: r.val.LeagueID, LeagueExternalID: s.leagues.extOf(r.val.LeagueID),
			Name: r.val.Name, IsCurrent: r.val.IsCurrent, Finished: r.val.Finished, Pending: r.val.Pending,
			StartingAt: r.val.StartingAt, EndingAt: r.val.EndingAt,
			CreatedAt: r.created, UpdatedAt: r.updated,
		})
	}
	return page(out, opts)
}

func (s *Store) ListTeams(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.Team, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Team
	for _, r := range s.teams.sorted() {
		if !matchExt(f, r.ext) || !matchSearch(f, r.val.Name) || !matchOptID(f.CountryID, r.val.CountryID) {
			continue
		}
		t := store.Team{
			ID: r.id, ExternalID: r.ext, CountryID: r.val.CountryID,
			Name: r.val.Name, ShortCode: r.val.ShortCode, Type: r.val.Type,
			ImagePath: r.val.ImagePath, Founded: r.val.Founded,
			CreatedAt: r.created, UpdatedAt: r.updated,
		}
		if r.val.CountryID != nil {
			t.CountryExternalID = s.countries.extOf(*r.val.CountryID)
		}
		out = append(out, t)
	}
	return page(out, opts)
}

func (s *Store) ListFixtures(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.Fixture, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Fixture
	for _, r := range s.fixtures.sorted() {
		v := r.val
		seasonExt := s.seasons.extOf(v.SeasonID)
		if !matchExt(f, r.ext) || !matchSearch(f, v.Name) || !matchOptID(f.LeagueID, v.LeagueID) {
			continue
		}
		if len(f.SeasonExternalIDs) > 0 && !contains(f.SeasonExternalIDs, seasonExt) {
			continue
		}
		if !inRange(v.StartingAt, f.From, f.To) {
			continue
		}
		fx := store.Fixture{
			ID: r.id, ExternalID: r.ext, LeagueID: v.LeagueID,
			SeasonID: v.SeasonID, SeasonExternalID: seasonExt,
			HomeTeamID: v.HomeTeamID, HomeTeamExternalID: s.teams.extOf(v.HomeTeamID),
			AwayTeamID: v.AwayTeamID, AwayTeamExternalID: s.teams.extOf(v.AwayTeamID),
			Name: v.Name, StartingAt: v.StartingAt, State: v.State, ResultInfo: v.ResultInfo,
			HomeScore: v.HomeScore, AwayScore: v.AwayScore,
			CreatedAt: r.created, UpdatedAt: r.updated,
		}
		if v.LeagueID != nil {
			fx.LeagueExternalID = s.leagues.extOf(*v.LeagueID)
		}
		out = append(out, fx)
	}
	return page(out, opts)
}

func (s *Store) ListBookmakers(_ context.Context, f store.Filter, opts store.ListOptions) ([]store.Bookmaker, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Bookmaker
	for _, r := range s.bookmakers.sorted() {
		if !matchExt(f, r.ext) || !matchSearch(f, r.val.Name) {
			continue
		}
		out = append(out, store.Bookmaker{
			ID: r.id, ExternalID: r.ext, Name: r.val.Name,
			CreatedAt: r.created, UpdatedAt: r.updated,
		})
	}
	return page(out, opts)
}

// --------------------------------------------------------------------------
// Upserts
// --------------------------------------------------------------------------

func (s *Store) UpsertCountry(_ context.Context, in store.CountryInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindCountries, in.ExternalID); err != nil {
		return "", err
	}
	return s.countries.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) UpsertLeague(_ context.Context, in store.LeagueInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindLeagues, in.ExternalID); err != nil {
		return "", err
	}
	if in.CountryID != nil && !s.countries.has(*in.CountryID) {
		return "", fkViolation("leagues_country_id_fkey")
	}
	return s.leagues.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) UpsertSeason(_ context.Context, in store.SeasonInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindSeasons, in.ExternalID); err != nil {
		return "", err
	}
	if !s.leagues.has(in.LeagueID) {
		return "", fkViolation("seasons_league_id_fkey")
	}
	return s.seasons.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) UpsertTeam(_ context.Context, in store.TeamInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindTeams, in.ExternalID); err != nil {
		return "", err
	}
	if in.CountryID != nil && !s.countries.has(*in.CountryID) {
		return "", fkViolation("teams_country_id_fkey")
	}
	return s.teams.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) UpsertFixture(_ context.Context, in store.FixtureInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindFixtures, in.ExternalID); err != nil {
		return "", err
	}
	switch {
	case !s.seasons.has(in.SeasonID):
		return "", fkViolation("fixtures_season_id_fkey")
	case !s.teams.has(in.HomeTeamID):
		return "", fkViolation("fixtures_home_team_id_fkey")
	case !s.teams.has(in.AwayTeamID):
		return "", fkViolation("fixtures_away_team_id_fkey")
	case in.LeagueID != nil && !s.leagues.has(*in.LeagueID):
		return "", fkViolation("fixtures_league_id_fkey")
	}
	return s.fixtures.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) UpsertBookmaker(_ context.Context, in store.BookmakerInput) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(store.KindBookmakers, in.ExternalID); err != nil {
		return "", err
	}
	return s.bookmakers.upsert(in.ExternalID, in, s.now()), nil
}

func (s *Store) ExternalIDs(_ context.Context, kind store.Kind) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case store.KindCountries:
		return s.countries.ids(), nil
	case store.KindLeagues:
		return s.leagues.ids(), nil
	case store.KindSeasons:
		return s.seasons.ids(), nil
	case store.KindTeams:
		return s.teams.ids(), nil
	case store.KindFixtures:
		return s.fixtures.ids(), nil
	case store.KindBookmakers:
		return s.bookmakers.ids(), nil
	}
	return nil, store.ErrUnknownKind
}

func (s *Store) check(kind store.Kind, ext string) error {
	if strings.TrimSpace(ext) == "" {
		return &store.ConstraintError{Constraint: string(kind) + "_external_id_not_null", Detail: "external id is empty"}
	}
	return nil
}

func fkViolation(constraint string) error {
	return &store.ConstraintError{Constraint: constraint, Detail: "referenced row does not exist"}
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

func (s *Store) CreateBatch(_ context.Context, name string, trigger store.Trigger) (store.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchSeq++
	b := &store.Batch{
		ID:        s.batchSeq,
		Name:      name,
		Status:    store.BatchRunning,
		Trigger:   trigger,
		StartedAt: s.now(),
	}
	s.batches = append(s.batches, b)
	return *b, nil
}

func (s *Store) AppendBatchItem(_ context.Context, item store.BatchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batch(item.BatchID)
	if b == nil {
		return store.ErrNotFound
	}
	if b.FinishedAt != nil {
		return store.ErrBatchFinalized
	}
	s.itemSeq++
	item.ID = s.itemSeq
	item.CreatedAt = s.now()
	s.items[item.BatchID] = append(s.items[item.BatchID], item)
	return nil
}

func (s *Store) FinalizeBatch(_ context.Context, batchID int64) (store.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batch(batchID)
	if b == nil {
		return store.Batch{}, store.ErrNotFound
	}
	if b.FinishedAt != nil {
		return *b, store.ErrBatchFinalized
	}
	var ok, failed int
	for _, it := range s.items[batchID] {
		if it.Status == store.ItemFailed {
			failed++
		} else {
			ok++
		}
	}
	now := s.now()
	b.ItemsTotal = ok + failed
	b.ItemsSuccess = ok
	b.ItemsFailed = failed
	b.Status = store.FinalStatus(b.ItemsTotal, failed)
	b.FinishedAt = &now
	return *b, nil
}

func (s *Store) GetBatch(_ context.Context, batchID int64) (store.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.batch(batchID); b != nil {
		return *b, nil
	}
	return store.Batch{}, store.ErrNotFound
}

func (s *Store) ListBatches(_ context.Context, name string, limit int) ([]store.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Batch
	for i := len(s.batches) - 1; i >= 0; i-- {
		if name != "" && s.batches[i].Name != name {
			continue
		}
		out = append(out, *s.batches[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListBatchItems(_ context.Context, batchID int64, opts store.ListOptions) ([]store.BatchItem, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch(batchID) == nil {
		return nil, 0, store.ErrNotFound
	}
	items := append([]store.BatchItem(nil), s.items[batchID]...)
	return page(items, opts)
}

func (s *Store) batch(id int64) *store.Batch {
	for _, b := range s.batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func page[T any](rows []T, opts store.ListOptions) ([]T, int, error) {
	total := len(rows)
	if opts.PerPage <= 0 {
		return rows, total, nil
	}
	start := opts.Offset()
	if start >= total {
		return []T{}, total, nil
	}
	end := min(start+opts.PerPage, total)
	return rows[start:end], total, nil
}

func matchExt(f store.Filter, ext string) bool {
	return f.ExternalID == "" || f.ExternalID == ext
}

func matchSearch(f store.Filter, name string) bool {
	return f.Search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(f.Search))
}

func matchOptID(want, got *int64) bool {
	return want == nil || (got != nil && *got == *want)
}

func matchID(want *int64, got int64) bool {
	return want == nil || *want == got
}

func inRange(t, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func equalLeague(a, b store.LeagueInput) bool {
	return a.ExternalID == b.ExternalID && eqPtr(a.CountryID, b.CountryID) &&
		a.Name == b.Name && a.ShortCode == b.ShortCode && a.Type == b.Type &&
		a.ImagePath == b.ImagePath && a.Active == b.Active
}

func equalSeason(a, b store.SeasonInput) bool {
	return a.ExternalID == b.ExternalID && a.LeagueID == b.LeagueID && a.Name == b.Name &&
		a.IsCurrent == b.IsCurrent && a.Finished == b.Finished && a.Pending == b.Pending &&
		eqTime(a.StartingAt, b.StartingAt) && eqTime(a.EndingAt, b.EndingAt)
}

func equalTeam(a, b store.TeamInput) bool {
	return a.ExternalID == b.ExternalID && eqPtr(a.CountryID, b.CountryID) &&
		a.Name == b.Name && a.ShortCode == b.ShortCode && a.Type == b.Type &&
		a.ImagePath == b.ImagePath && a.Founded == b.Founded
}

func equalFixture(a, b store.FixtureInput) bool {
	return a.ExternalID == b.ExternalID && eqPtr(a.LeagueID, b.LeagueID) &&
		a.SeasonID == b.SeasonID && a.HomeTeamID == b.HomeTeamID && a.AwayTeamID == b.AwayTeamID &&
		a.Name == b.Name && eqTime(a.StartingAt, b.StartingAt) && a.State == b.State &&
		a.ResultInfo == b.ResultInfo && eqPtr(a.HomeScore, b.HomeScore) && eqPtr(a.AwayScore, b.AwayScore)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
