package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-sync/internal/api/respond"
	"github.com/albapepper/scoracle-sync/internal/jobs"
	"github.com/albapepper/scoracle-sync/internal/pipeline"
	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

// jobAccepted is the 202 body for async runs.
type jobAccepted struct {
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// SyncEntity syncs every record of one kind. The sync runs as a job that
// outlives the request; a caller that disconnects gets its job id in a 202.
// @Summary Sync an entity kind
// @Description Fetches every provider record of the kind, reconciles against the database and writes missing, new and mismatched records. Audited as batch seed-{entity}.
// @Tags sync
// @Accept json
// @Produce json
// @Param entity path string true "Entity kind" Enums(countries, leagues, seasons, teams, fixtures, bookmakers)
// @Param body body syncRequest false "Options"
// @Success 200 {object} respond.Envelope
// @Success 202 {object} respond.Envelope
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sync/{entity} [post]
func (h *Handler) SyncEntity(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.syncKind(w, r, kind, "")
}

// SyncRecord syncs one record by external id. The record is written even
// when it is already in sync.
// @Summary Sync one record
// @Tags sync
// @Accept json
// @Produce json
// @Param entity path string true "Entity kind"
// @Param externalId path string true "Provider id"
// @Param body body syncRequest false "Options"
// @Success 200 {object} respond.Envelope
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sync/{entity}/{externalId} [post]
func (h *Handler) SyncRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.syncKind(w, r, kind, chi.URLParam(r, "externalId"))
}

// SyncFixtures syncs fixtures for a season, a date window, or every local
// season, in that order of precedence.
// @Summary Sync fixtures
// @Tags sync
// @Accept json
// @Produce json
// @Param body body syncRequest false "dryRun, seasonId, from, to"
// @Success 200 {object} respond.Envelope
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sync/fixtures [post]
func (h *Handler) SyncFixtures(w http.ResponseWriter, r *http.Request) {
	h.syncKind(w, r, store.KindFixtures, "")
}

func (h *Handler) syncKind(w http.ResponseWriter, r *http.Request, kind store.Kind, externalID string) {
	req, err := decodeSyncRequest(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	scope := scopeFor(kind, externalID, req.seasons(), req.from, req.to)
	opts := syncer.Options{DryRun: req.DryRun, Trigger: store.TriggerManual}

	// runErr keeps the typed error for status mapping; the job only stores
	// its text. Await returning a finished job orders the write before the read.
	var runErr error
	job, err := h.jobs.Submit(jobs.Spec{
		Name:   kind.BatchName(),
		DryRun: req.DryRun,
		Run: func(ctx context.Context) (any, error) {
			out, err := h.pipeline.SyncOne(ctx, kind, scope, opts)
			runErr = err
			return out, err
		},
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if req.Async {
		h.writeAccepted(w, job)
		return
	}

	done, err := h.jobs.Await(r.Context(), job.ID)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.writeAccepted(w, job)
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if runErr != nil {
		h.writeErr(w, r, runErr)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, respond.Success(done.Result))
}

// SyncAll runs the full pipeline. Runs are exclusive: a second request while
// one is in flight gets 409. A synchronous caller that disconnects leaves
// the run going; its job id is in the 202 body when the wait is cut short.
// @Summary Run the full pipeline
// @Description Syncs countries, leagues, seasons, teams, fixtures and bookmakers in order. A failure in the first four stops the run.
// @Tags sync
// @Accept json
// @Produce json
// @Param body body syncRequest false "dryRun, seasonId, from, to, async"
// @Success 200 {object} respond.Envelope
// @Success 202 {object} respond.Envelope
// @Failure 409 {object} respond.ErrorResponse
// @Router /sync/all [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSyncRequest(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	params := pipeline.Params{
		DryRun:   req.DryRun,
		SeasonID: string(req.SeasonID),
		From:     req.from,
		To:       req.to,
		Trigger:  store.TriggerManual,
	}

	job, err := h.jobs.Submit(h.pipeline.JobSpec(params))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if req.Async {
		h.writeAccepted(w, job)
		return
	}

	done, err := h.jobs.Await(r.Context(), job.ID)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.writeAccepted(w, job)
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	results, _ := done.Result.([]pipeline.Result)
	env := respond.Success(results)
	if pipeline.WasAborted(results) {
		env.Message = done.Error
	}
	respond.WriteJSONObject(w, http.StatusOK, env)
}

func (h *Handler) writeAccepted(w http.ResponseWriter, job jobs.Job) {
	respond.WriteJSONObject(w, http.StatusAccepted, respond.Envelope{
		Status:  respond.StatusSuccess,
		Data:    jobAccepted{JobID: job.ID, StatusURL: "/api/v1/jobs/" + job.ID + "/status"},
		Message: "job started",
	})
}

// JobStatus reports an async job.
// @Summary Job status
// @Tags sync
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} respond.Envelope
// @Failure 404 {object} respond.ErrorResponse
// @Router /jobs/{id}/status [get]
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, respond.Success(job))
}
