package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/albapepper/scoracle-sync/internal/api/handler"
	"github.com/albapepper/scoracle-sync/internal/api/respond"
	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/cache"
	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/events"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/metrics"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/provider/mocks"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/store/memory"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testServer struct {
	router *chi.Mux
	prov   *mocks.MockClient
	store  *memory.Store
	jobs   *jobs.Manager
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	prov := mocks.NewMockClient(ctrl)
	prov.EXPECT().Name().Return("sportmonks").AnyTimes()

	cfg := &config.Config{CacheTTL: time.Minute, CORSAllowOrigins: []string{"*"}}
	st := memory.New()
	sy := syncer.New(prov, st, batch.NewRecorder(st, quiet), syncer.WithLogger(quiet))
	bus := events.NewBus(quiet)
	c := cache.New(true)
	t.Cleanup(c.Close)
	c.Subscribe(bus, quiet)
	jm := jobs.NewManager(context.Background(), nil, quiet)
	t.Cleanup(func() { _ = jm.Wait(context.Background()) })

	router := NewRouter(handler.Deps{
		Store:    st,
		Syncer:   sy,
		Pipeline: pipeline.New(sy, bus, pipeline.WithLogger(quiet)),
		Jobs:     jm,
		Batches:  batch.NewRecorder(st, quiet),
		Cache:    c,
		Logger:   quiet,
	}, metrics.New(), cfg)

	return testServer{router: router, prov: prov, store: st, jobs: jm}
}

type envelope struct {
	Status     string              `json:"status"`
	Data       json.RawMessage     `json:"data"`
	Message    string              `json:"message"`
	Code       string              `json:"code"`
	Pagination *respond.Pagination `json:"pagination"`
	Counts     map[string]int      `json:"counts"`
	Provider   string              `json:"provider"`
}

func (s testServer) do(t *testing.T, method, target, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNotModified && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func countries(names ...string) []provider.Country {
	out := make([]provider.Country, 0, len(names))
	for i, n := range names {
		out = append(out, provider.Country{ExternalID: fmt.Sprint(i + 1), Name: n, ISO2: n[:2], ISO3: n[:3]})
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec, _ = s.do(t, http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncEntityThenCachedList(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.prov.EXPECT().GetCountries(gomock.Any()).Return(countries("Argentina", "Brazil"), nil).Times(1)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync/countries", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out syncer.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.OK)
	assert.Equal(t, 0, out.Fail)
	assert.Equal(t, 2, out.Total)
	assert.NotZero(t, out.BatchID)

	rec, env = s.do(t, http.MethodGet, "/api/v1/db/countries?perPage=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/db/countries?perPage=1", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/db/countries?perPage=1", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	// A sync that changes countries drops the cached page.
	s.prov.EXPECT().GetCountries(gomock.Any()).Return(countries("Argentina", "Brasil"), nil).Times(1)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/sync/countries", `{"dryRun":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/db/countries?perPage=1", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestSyncRecordWritesEvenWhenInSync(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	_, err := s.store.UpsertBookmaker(context.Background(), store.BookmakerInput{ExternalID: "2", Name: "bet365"})
	require.NoError(t, err)
	s.prov.EXPECT().GetBookmaker(gomock.Any(), "2").Return(provider.Bookmaker{ExternalID: "2", Name: "bet365"}, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync/bookmakers/2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out syncer.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Total)
	require.Len(t, out.Results, 1)
	assert.Equal(t, store.Unchanged, out.Results[0].Action)
}

func TestSyncEntityOutlivesDisconnectedCaller(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	release := make(chan struct{})
	s.prov.EXPECT().GetCountries(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]provider.Country, error) {
		<-release
		assert.NoError(t, ctx.Err())
		return countries("Argentina"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/countries", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	close(release)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var accepted struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	require.NotEmpty(t, accepted.JobID)

	job, err := s.jobs.Await(context.Background(), accepted.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateSucceeded, job.State)
	ids, err := s.store.ExternalIDs(context.Background(), store.KindCountries)
	require.NoError(t, err)
	assert.Contains(t, ids, "1")
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.prov.EXPECT().GetLeagues(gomock.Any()).Return(nil, fmt.Errorf("%w: status 503", provider.ErrUnavailable))
	s.prov.EXPECT().GetTeam(gomock.Any(), "404").Return(provider.Team{}, provider.ErrNotFound)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
		errTag string
	}{
		{"unknown entity", http.MethodPost, "/api/v1/sync/players", "", http.StatusNotFound, "UNKNOWN_ENTITY"},
		{"unknown entity read", http.MethodGet, "/api/v1/db/players", "", http.StatusNotFound, "UNKNOWN_ENTITY"},
		{"provider down", http.MethodPost, "/api/v1/sync/leagues", "", http.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
		{"record not found", http.MethodPost, "/api/v1/sync/teams/404", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad json", http.MethodPost, "/api/v1/sync/countries", "{", http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad date", http.MethodPost, "/api/v1/sync/fixtures", `{"from":"yesterday"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"inverted window", http.MethodPost, "/api/v1/sync/fixtures", `{"from":"2026-03-07","to":"2026-03-01"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad page", http.MethodGet, "/api/v1/db/countries?perPage=0", "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad batch id", http.MethodGet, "/api/v1/db/batches/abc/items", "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing batch", http.MethodGet, "/api/v1/db/batches/999/items", "", http.StatusNotFound, "NOT_FOUND"},
		{"missing job", http.MethodGet, "/api/v1/jobs/nope/status", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, respond.StatusError, env.Status)
			assert.Equal(t, tt.errTag, env.Code)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func expectEmptyProvider(p *mocks.MockClient) {
	p.EXPECT().GetCountries(gomock.Any()).Return(nil, nil).AnyTimes()
	p.EXPECT().GetLeagues(gomock.Any()).Return(nil, nil).AnyTimes()
	p.EXPECT().GetSeasons(gomock.Any()).Return(nil, nil).AnyTimes()
	p.EXPECT().GetTeams(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	p.EXPECT().GetBookmakers(gomock.Any()).Return(nil, nil).AnyTimes()
}

func TestSyncAllAsyncJob(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	expectEmptyProvider(s.prov)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync/all", `{"async":true,"dryRun":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted struct {
		JobID     string `json:"jobId"`
		StatusURL string `json:"statusUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	require.NotEmpty(t, accepted.JobID)

	_, err := s.jobs.Await(context.Background(), accepted.JobID)
	require.NoError(t, err)

	rec, env = s.do(t, http.MethodGet, accepted.StatusURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job struct {
		State  jobs.State        `json:"state"`
		DryRun bool              `json:"dryRun"`
		Result []pipeline.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, jobs.StateSucceeded, job.State)
	assert.True(t, job.DryRun)
	assert.Len(t, job.Result, 6)
}

func TestSyncAllSynchronousAbort(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.prov.EXPECT().GetCountries(gomock.Any()).Return(nil, provider.ErrUnavailable)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync/all", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var results []pipeline.Result
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, pipeline.StatusError, results[0].Status)
	assert.Contains(t, env.Message, "pipeline stopped at countries")
}

func TestSyncAllConflict(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	release := make(chan struct{})
	_, err := s.jobs.Submit(jobs.Spec{Name: pipeline.JobName, Exclusive: true, Run: func(context.Context) (any, error) {
		<-release
		return nil, nil
	}})
	require.NoError(t, err)
	defer close(release)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync/all", `{"async":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Code)
}

func TestReconcileView(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	_, err := s.store.UpsertCountry(context.Background(), store.CountryInput{ExternalID: "9", Name: "Atlantis", ISO2: "AT", ISO3: "ATL"})
	require.NoError(t, err)
	s.prov.EXPECT().GetCountries(gomock.Any()).Return(countries("Argentina"), nil).Times(2)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reconcile/countries?status=missing-in-db", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var views []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "1", views[0]["externalId"])
	assert.Equal(t, 1, env.Counts["missing-in-db"])
	assert.Equal(t, 1, env.Counts["extra-in-db"])
	assert.Equal(t, 1, env.Pagination.TotalItems)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/reconcile/countries", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/reconcile/countries?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "bogus")

	batches, err := s.store.ListBatches(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, batches, "reconcile never writes")
}

func TestBatchEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.prov.EXPECT().GetBookmakers(gomock.Any()).Return([]provider.Bookmaker{
		{ExternalID: "1", Name: "bet365"},
		{ExternalID: "2", Name: ""},
	}, nil)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/sync/bookmakers", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodGet, "/api/v1/db/batches?name=seed-bookmakers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []store.Batch
	require.NoError(t, json.Unmarshal(env.Data, &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, store.BatchPartial, batches[0].Status)
	assert.Equal(t, 2, batches[0].ItemsTotal)

	rec, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/db/batches/%d/items?perPage=1", batches[0].ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []store.BatchItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
	assert.Equal(t, 2, env.Pagination.TotalItems)
}

func TestListProvider(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.prov.EXPECT().GetBookmakers(gomock.Any()).Return([]provider.Bookmaker{{ExternalID: "1", Name: "bet365"}}, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/provider/bookmakers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sportmonks", env.Provider)
	assert.JSONEq(t, `[{"externalId":"1","name":"bet365"}]`, string(env.Data))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", "")

	rec, _ := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "scoracle_sync_http_request_duration_seconds_count")
	assert.Contains(t, body, `status_code="200"`)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
