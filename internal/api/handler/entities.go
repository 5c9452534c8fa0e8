package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-sync/internal/api/respond"
	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/cache"
	"github.com/albapepper/scoracle-sync/internal/reconcile"
	"github.com/albapepper/scoracle-sync/internal/store"
)

// ListDB returns stored records of one kind.
// @Summary List stored records
// @Description Paginated database records. Cached until the next sync that changes the kind or a parent kind.
// @Tags db
// @Produce json
// @Param entity path string true "Entity kind" Enums(countries, leagues, seasons, teams, fixtures, bookmakers)
// @Param page query int false "Page (1-based)"
// @Param perPage query int false "Page size (max 500)"
// @Param search query string false "Case-insensitive name match"
// @Param externalId query string false "Provider id"
// @Param countryId query int false "Local country id (leagues, teams)"
// @Param leagueId query int false "Local league id (seasons, fixtures)"
// @Param seasonId query string false "Season provider ids, comma separated (fixtures)"
// @Param from query string false "Fixtures starting on or after (YYYY-MM-DD)"
// @Param to query string false "Fixtures starting on or before (YYYY-MM-DD)"
// @Param If-None-Match header string false "ETag from a previous response"
// @Success 200 {object} respond.Envelope
// @Success 304
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /db/{entity} [get]
func (h *Handler) ListDB(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	q := r.URL.Query()
	f, err := filterParams(q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	opts, err := pageParams(q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	// Encode sorts by key, so equivalent queries share an entry.
	cacheKey := cache.Key(kind, q.Encode())
	ttl := h.cfg.CacheTTL

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	rows, total, err := listKind(r.Context(), h.store, kind, f, opts)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	env := respond.Success(rows)
	env.Pagination = respond.NewPagination(opts.Page, opts.PerPage, total)
	raw, err := json.Marshal(env)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, raw, etag, ttl, false)
}

func listKind(ctx context.Context, st store.EntityStore, kind store.Kind, f store.Filter, opts store.ListOptions) (any, int, error) {
	switch kind {
	case store.KindCountries:
		return nonNil[store.Country](st.ListCountries(ctx, f, opts))
	case store.KindLeagues:
		return nonNil[store.League](st.ListLeagues(ctx, f, opts))
	case store.KindSeasons:
		return nonNil[store.Season](st.ListSeasons(ctx, f, opts))
	case store.KindTeams:
		return nonNil[store.Team](st.ListTeams(ctx, f, opts))
	case store.KindFixtures:
		return nonNil[store.Fixture](st.ListFixtures(ctx, f, opts))
	case store.KindBookmakers:
		return nonNil[store.Bookmaker](st.ListBookmakers(ctx, f, opts))
	}
	return nil, 0, fmt.Errorf("%w: %q", store.ErrUnknownKind, kind)
}

// nonNil keeps empty pages as [] rather than null.
func nonNil[T any](rows []T, total int, err error) (any, int, error) {
	if rows == nil {
		rows = []T{}
	}
	return rows, total, err
}

// ListProvider returns live provider records of one kind.
// @Summary List provider records
// @Tags provider
// @Produce json
// @Param entity path string true "Entity kind"
// @Param externalId query string false "Fetch one record"
// @Param seasonId query string false "Season provider ids (teams, fixtures)"
// @Param from query string false "Fixture window start (YYYY-MM-DD)"
// @Param to query string false "Fixture window end (YYYY-MM-DD)"
// @Success 200 {object} respond.Envelope
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /provider/{entity} [get]
func (h *Handler) ListProvider(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	scope, err := scopeParams(kind, r.URL.Query())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	data, err := h.syncer.Fetch(r.Context(), kind, scope)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	env := respond.Success(data)
	env.Provider = h.syncer.Provider().Name()
	respond.WriteJSONObject(w, http.StatusOK, env)
}

// Reconcile compares provider and database records without writing.
// @Summary Reconciliation view
// @Description Unified records with a status per external id. counts covers every record; status filters the page.
// @Tags reconcile
// @Produce json
// @Param entity path string true "Entity kind"
// @Param status query string false "Comma separated statuses" Enums(ok, mismatch, missing-in-db, extra-in-db, new, iso-missing, no-leagues)
// @Param page query int false "Page (1-based)"
// @Param perPage query int false "Page size (max 500)"
// @Param seasonId query string false "Season provider ids (teams, fixtures)"
// @Param from query string false "Fixture window start"
// @Param to query string false "Fixture window end"
// @Success 200 {object} respond.Envelope
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /reconcile/{entity} [get]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	q := r.URL.Query()
	opts, err := pageParams(q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var statuses []reconcile.Status
	for _, s := range splitList(q.Get("status")) {
		st, ok := reconcile.ParseStatus(s)
		if !ok {
			h.writeErr(w, r, invalid(fmt.Sprintf("unknown status %q", s)))
			return
		}
		statuses = append(statuses, st)
	}
	scope, err := scopeParams(kind, q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	views, err := h.syncer.Diff(r.Context(), kind, scope)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	counts := reconcile.CountViews(views)
	if len(statuses) > 0 {
		views = filterViews(views, statuses)
	}

	env := respond.Success(pageOf(views, opts))
	env.Pagination = respond.NewPagination(opts.Page, opts.PerPage, len(views))
	env.Counts = counts
	respond.WriteJSONObject(w, http.StatusOK, env)
}

func filterViews(views []reconcile.View, statuses []reconcile.Status) []reconcile.View {
	keep := make(map[reconcile.Status]bool, len(statuses))
	for _, s := range statuses {
		keep[s] = true
	}
	out := make([]reconcile.View, 0, len(views))
	for _, v := range views {
		if keep[v.Status] {
			out = append(out, v)
		}
	}
	return out
}

func pageOf[T any](items []T, opts store.ListOptions) []T {
	start := opts.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if opts.PerPage > 0 {
		end = min(start+opts.PerPage, end)
	}
	return items[start:end]
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

// ListBatches returns audit batches, newest first.
// @Summary List sync batches
// @Tags db
// @Produce json
// @Param name query string false "Batch name, e.g. seed-teams"
// @Param limit query int false "Max batches (default 20, max 200)"
// @Success 200 {object} respond.Envelope
// @Router /db/batches [get]
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := batch.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > batch.MaxListLimit {
			h.writeErr(w, r, invalid(fmt.Sprintf("limit must be between 1 and %d", batch.MaxListLimit)))
			return
		}
		limit = n
	}
	batches, err := h.batches.List(r.Context(), q.Get("name"), limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if batches == nil {
		batches = []store.Batch{}
	}
	respond.WriteJSONObject(w, http.StatusOK, respond.Success(batches))
}

// ListBatchItems returns the per-record audit rows of one batch.
// @Summary List batch items
// @Tags db
// @Produce json
// @Param id path int true "Batch id"
// @Param page query int false "Page (1-based)"
// @Param perPage query int false "Page size (max 500)"
// @Success 200 {object} respond.Envelope
// @Failure 404 {object} respond.ErrorResponse
// @Router /db/batches/{id}/items [get]
func (h *Handler) ListBatchItems(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param("id", chi.URLParam(r, "id"))
	if err != nil || id == nil {
		h.writeErr(w, r, invalid("batch id must be a positive integer"))
		return
	}
	opts, err := pageParams(r.URL.Query())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	items, total, err := h.batches.Items(r.Context(), *id, opts)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if items == nil {
		items = []store.BatchItem{}
	}
	env := respond.Success(items)
	env.Pagination = respond.NewPagination(opts.Page, opts.PerPage, total)
	respond.WriteJSONObject(w, http.StatusOK, env)
}
