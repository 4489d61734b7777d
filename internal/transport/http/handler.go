package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/export"
	"talent-sourcing-service/internal/service"
)

// JobsService is the Gateway use-case port (implementation: service.JobService).
type JobsService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResponse, error)
	GetStatus(ctx context.Context, jobID string) (entity.StatusRecord, error)
	GetResult(ctx context.Context, jobID string) ([]byte, error)
	Result(ctx context.Context, jobID string) (entity.JobResult, error)
	ListJobs(ctx context.Context, filter string) (service.JobList, error)
	DeleteJobCache(ctx context.Context, jobID string) bool
	Health(ctx context.Context) service.HealthReport
}

// Sourcer runs a sourcing request inline (implementation:
// service.SourcingService).
type Sourcer interface {
	Source(ctx context.Context, req service.SubmitRequest) (service.SourceResponse, error)
}

type Handler struct {
	jobSvc   JobsService
	sourcing Sourcer
	log      *slog.Logger
}

func NewHandler(jobSvc JobsService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{jobSvc: jobSvc, log: logger}
}

// WithSourcing enables POST /source-candidates.
func (h *Handler) WithSourcing(s Sourcer) *Handler {
	h.sourcing = s
	return h
}

type createJobDTO struct {
	JobDescription string `json:"job_description"`
	SearchMethod   string `json:"search_method,omitempty"` // rapid_api (default) or google_crawler
	Limit          *int   `json:"limit,omitempty"`         // 1..50, default 5
}

type deleteCacheResp struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	Deleted bool   `json:"deleted"`
}

// CreateJob godoc
// @Summary Submit a sourcing job
// @Description Answers from the result cache when the same request was served recently (200, status=completed),
// @Description otherwise records a queued job and enqueues it for the worker pool (202).
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body createJobDTO true "requirement text, search method (rapid_api|google_crawler), limit (1..50)"
// @Success 200 {object} service.SubmitResponse
// @Success 202 {object} service.SubmitResponse
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	strategy := entity.Strategy(strings.TrimSpace(dto.SearchMethod))
	if strategy == "" {
		strategy = entity.StrategyRapidAPI
	}
	limit := service.DefaultLimit
	if dto.Limit != nil {
		limit = *dto.Limit
	}

	resp, err := h.jobSvc.Submit(r.Context(), service.SubmitRequest{
		RequirementText: dto.JobDescription,
		Strategy:        strategy,
		Limit:           limit,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	code := http.StatusAccepted
	if resp.Status == entity.StatusCompleted {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

type sourceCandidatesDTO struct {
	JobDescription string `json:"job_description"`
	SearchMethod   string `json:"search_method,omitempty"` // rapid_api (default) or google_crawler
	Limit          *int   `json:"limit,omitempty"`         // 1..10, default 10; larger values are capped
}

// SourceCandidates godoc
// @Summary Source candidates synchronously
// @Description Runs search, enrichment, scoring and outreach inline and answers with the top candidates,
// @Description best fit first. Nothing is queued or cached. limit is capped at 10.
// @Tags sourcing
// @Accept json
// @Produce json
// @Param request body sourceCandidatesDTO true "requirement text, search method (rapid_api|google_crawler), limit (1..10)"
// @Success 200 {object} service.SourceResponse
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /source-candidates [post]
func (h *Handler) SourceCandidates(w http.ResponseWriter, r *http.Request) {
	var dto sourceCandidatesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	strategy := entity.Strategy(strings.TrimSpace(dto.SearchMethod))
	if strategy == "" {
		strategy = entity.StrategyRapidAPI
	}
	limit := service.MaxSyncLimit
	if dto.Limit != nil {
		limit = *dto.Limit
	}

	resp, err := h.sourcing.Source(r.Context(), service.SubmitRequest{
		RequirementText: dto.JobDescription,
		Strategy:        strategy,
		Limit:           limit,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListJobs godoc
// @Summary List jobs
// @Description Newest first. Completed jobs carry candidate urls and scores only.
// @Tags jobs
// @Produce json
// @Param status query string false "in_progress | completed | failed"
// @Success 200 {object} service.JobList
// @Failure 400 {object} apiError
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobSvc.ListJobs(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetJob godoc
// @Summary Get job status
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} entity.StatusRecord
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	rec, err := h.jobSvc.GetStatus(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetJobResult godoc
// @Summary Get job result
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} entity.JobResult
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/result [get]
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	raw, err := h.jobSvc.GetResult(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	// stored bytes as is
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// ExportJobResult godoc
// @Summary Export job result as XLSX
// @Tags jobs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "job id (uuid)"
// @Success 200 {file} file
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/export.xlsx [get]
func (h *Handler) ExportJobResult(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	res, err := h.jobSvc.Result(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	b, err := export.ResultXLSX(res)
	if err != nil {
		h.log.Error("http.export.error", "job_id", id, "error", err)
		writeErr(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candidates-%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// DeleteJobCache godoc
// @Summary Delete a job's status and result
// @Tags jobs
// @Produce json
// @Description Unknown ids, including ones that are not uuids, answer deleted=false.
// @Param id path string true "job id"
// @Success 200 {object} deleteCacheResp
// @Router /jobs/{id}/cache [delete]
func (h *Handler) DeleteJobCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := deleteCacheResp{JobID: id, Deleted: h.jobSvc.DeleteJobCache(r.Context(), id)}
	if resp.Deleted {
		resp.Message = "Cache deleted for job " + id
	} else {
		resp.Message = "No cache found for job " + id
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health godoc
// @Summary Service health
// @Description Always 200; store and queue problems are reported in the body.
// @Tags system
// @Produce json
// @Success 200 {object} service.HealthReport
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jobSvc.Health(r.Context()))
}

func jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id.String(), true
}

func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *service.ValidationError
		ie *service.InfrastructureError
		nc *service.NotCompletedError
	)
	switch {
	case errors.As(err, &ve):
		writeErr(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, service.ErrJobNotFound):
		writeErr(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, service.ErrResultsNotFound):
		writeErr(w, http.StatusNotFound, "Job results not found")
	case errors.As(err, &nc):
		writeErr(w, http.StatusConflict, nc.Error())
	case errors.As(err, &ie):
		h.log.Error("http.infrastructure_error", "path", r.URL.Path, "op", ie.Op, "error", ie.Err)
		writeErr(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		h.log.Error("http.internal_error", "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
