// Package handler provides HTTP handlers for all API endpoints. Reads go to
// the store or the provider; writes always go through the pipeline so every
// sync publishes a SyncCompleted event.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-sync/internal/api/respond"
	"github.com/albapepper/scoracle-sync/internal/batch"
	"github.com/albapepper/scoracle-sync/internal/cache"
	"github.com/albapepper/scoracle-sync/internal/config"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/provider"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Store    store.Store
	Syncer   *syncer.Syncer
	Pipeline *pipeline.Orchestrator
	Jobs     *jobs.Manager
	Batches  *batch.Recorder
	Cache    *cache.Cache
	Config   *config.Config
	Logger   *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store    store.Store
	syncer   *syncer.Syncer
	pipeline *pipeline.Orchestrator
	jobs     *jobs.Manager
	batches  *batch.Recorder
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    d.Store,
		syncer:   d.Syncer,
		pipeline: d.Pipeline,
		jobs:     d.Jobs,
		batches:  d.Batches,
		cache:    d.Cache,
		cfg:      d.Config,
		logger:   logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the upstream provider.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":     "Scoracle Sync API",
		"version":  "1.0.0",
		"status":   "running",
		"docs":     "/docs",
		"provider": h.syncer.Provider().Name(),
		"entities": store.Kinds,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --------------------------------------------------------------------------
// Error mapping
// --------------------------------------------------------------------------

// badRequest marks invalid client input.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error { return &badRequest{msg: msg} }

// writeErr maps domain errors to HTTP status codes.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var bad *badRequest
	switch {
	case errors.As(err, &bad):
		respond.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", bad.msg)
	case errors.Is(err, store.ErrUnknownKind):
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_ENTITY", err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, provider.ErrNotFound), errors.Is(err, jobs.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, jobs.ErrConflict):
		respond.WriteError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, provider.ErrUnavailable):
		respond.WriteError(w, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", err.Error())
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
