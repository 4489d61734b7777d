package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/fingerprint"
)

const (
	MinRequirementLength = 10
	MaxLimit             = 50
	DefaultLimit         = 5
)

// StateStore is the port to the job state store (implementation:
// redisstore.Store). Everything except CreateStatus is fail-open.
type StateStore interface {
	Ping(ctx context.Context) error
	CreateStatus(ctx context.Context, rec entity.StatusRecord, ttl time.Duration) error
	GetStatus(ctx context.Context, jobID string) (entity.StatusRecord, bool)
	MergeStatus(ctx context.Context, jobID string, patch entity.StatusPatch, ttl time.Duration) error
	GetResultRaw(ctx context.Context, jobID string) ([]byte, bool)
	GetResult(ctx context.Context, jobID string) (entity.JobResult, bool)
	PutResult(ctx context.Context, jobID string, result entity.JobResult, ttl time.Duration)
	GetCache(ctx context.Context, fingerprint string) (entity.JobResult, bool)
	DeleteJob(ctx context.Context, jobID string) bool
	ListStatuses(ctx context.Context) []entity.StatusRecord
}

// JobQueue is the producer side of the queue.
// (Queue in queue_service.go is the full consumer contract.)
type JobQueue interface {
	Enqueue(ctx context.Context, desc entity.JobDescriptor) error
	Stats(ctx context.Context) (QueueStats, error)
}

type SubmissionRecorder interface {
	RecordSubmission()
	RecordCacheHit()
}

type JobServiceConfig struct {
	StatusTTL time.Duration
}

type JobService struct {
	store   StateStore
	queue   JobQueue
	metrics SubmissionRecorder
	cfg     JobServiceConfig
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewJobService(store StateStore, queue JobQueue, metrics SubmissionRecorder, cfg JobServiceConfig, logger *slog.Logger) *JobService {
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		store:   store,
		queue:   queue,
		metrics: metrics,
		cfg:     cfg,
		log:     logger.With("component", "jobs"),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

type SubmitRequest struct {
	RequirementText string
	Strategy        entity.Strategy
	Limit           int
}

type SubmitResponse struct {
	JobID   string            `json:"job_id"`
	Status  entity.JobStatus  `json:"status"`
	Message string            `json:"message"`
	Data    *entity.JobResult `json:"data,omitempty"`
}

func (r SubmitRequest) Validate() error {
	if len(strings.TrimSpace(r.RequirementText)) < MinRequirementLength {
		return &ValidationError{Field: "job_description", Value: len(strings.TrimSpace(r.RequirementText)),
			Message: fmt.Sprintf("must be at least %d characters long", MinRequirementLength)}
	}
	if !r.Strategy.Valid() {
		return &ValidationError{Field: "search_method", Value: r.Strategy,
			Message: fmt.Sprintf("must be %q or %q", entity.StrategyRapidAPI, entity.StrategyGoogleCrawler)}
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return &ValidationError{Field: "limit", Value: r.Limit,
			Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	return nil
}

// Submit validates the request, answers from the fingerprint cache when it
// can, and otherwise records a queued status and enqueues the job.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return SubmitResponse{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission()
	}

	jobID := s.newID()
	fp := fingerprint.Compute(req.RequirementText, req.Strategy, req.Limit)
	now := s.now().UTC()
	log := s.log.With("job_id", jobID, "fingerprint", fp)

	if cached, ok := s.store.GetCache(ctx, fp); ok {
		return s.fromCache(ctx, log, jobID, fp, now, cached), nil
	}

	rec := entity.StatusRecord{
		JobID:        jobID,
		Status:       entity.StatusQueued,
		CreatedAt:    now,
		Progress:     entity.Ptr(0),
		Message:      "Job queued for processing",
		SearchMethod: req.Strategy,
		Fingerprint:  fp,
	}
	if err := s.store.CreateStatus(ctx, rec, s.cfg.StatusTTL); err != nil {
		return SubmitResponse{}, &InfrastructureError{Op: "persist job status", Err: err}
	}

	desc := entity.JobDescriptor{
		JobID:           jobID,
		RequirementText: strings.TrimSpace(req.RequirementText),
		Strategy:        req.Strategy,
		Limit:           req.Limit,
		Fingerprint:     fp,
		EnqueuedAt:      now,
	}
	if err := s.queue.Enqueue(ctx, desc); err != nil {
		msg := "enqueue failed"
		_ = s.store.MergeStatus(ctx, jobID, entity.StatusPatch{
			Status:      entity.Ptr(entity.StatusFailed),
			CompletedAt: entity.Ptr(s.now().UTC()),
			Error:       &msg,
		}, s.cfg.StatusTTL)
		return SubmitResponse{}, &InfrastructureError{Op: "enqueue job", Err: err}
	}

	log.Info("jobs.submitted", "strategy", req.Strategy, "limit", req.Limit)
	return SubmitResponse{JobID: jobID, Status: entity.StatusQueued, Message: "Job queued successfully"}, nil
}

func (s *JobService) fromCache(ctx context.Context, log *slog.Logger, jobID, fp string, now time.Time, cached entity.JobResult) SubmitResponse {
	if s.metrics != nil {
		s.metrics.RecordCacheHit()
	}
	res := cached
	res.JobID = jobID
	res.Cached = true

	rec := entity.StatusRecord{
		JobID:            jobID,
		Status:           entity.StatusCompleted,
		CreatedAt:        now,
		StartedAt:        &now,
		CompletedAt:      &now,
		Progress:         entity.Ptr(100),
		Message:          "Job completed (cached results)",
		TotalCandidates:  entity.Ptr(res.TotalCandidates),
		PassedCandidates: entity.Ptr(res.PassedCandidates),
		SearchMethod:     res.SearchMethod,
		Fingerprint:      fp,
	}
	s.store.PutResult(ctx, jobID, res, s.cfg.StatusTTL)
	if err := s.store.CreateStatus(ctx, rec, s.cfg.StatusTTL); err != nil {
		// the caller already has the result
		log.Warn("jobs.cache_hit.status_not_persisted", "error", err)
	}

	log.Info("jobs.cache_hit", "total", res.TotalCandidates)
	return SubmitResponse{
		JobID:   jobID,
		Status:  entity.StatusCompleted,
		Message: "Results retrieved from cache",
		Data:    &res,
	}
}

func (s *JobService) GetStatus(ctx context.Context, jobID string) (entity.StatusRecord, error) {
	rec, ok := s.store.GetStatus(ctx, jobID)
	if !ok {
		return entity.StatusRecord{}, ErrJobNotFound
	}
	return rec, nil
}

// GetResult returns the stored result bytes as written by the worker, so
// repeated reads of a completed job are identical.
func (s *JobService) GetResult(ctx context.Context, jobID string) ([]byte, error) {
	if err := s.requireCompleted(ctx, jobID); err != nil {
		return nil, err
	}
	raw, ok := s.store.GetResultRaw(ctx, jobID)
	if !ok {
		return nil, ErrResultsNotFound
	}
	return raw, nil
}

// Result is GetResult decoded, for exports.
func (s *JobService) Result(ctx context.Context, jobID string) (entity.JobResult, error) {
	raw, err := s.GetResult(ctx, jobID)
	if err != nil {
		return entity.JobResult{}, err
	}
	var res entity.JobResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return entity.JobResult{}, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}

func (s *JobService) requireCompleted(ctx context.Context, jobID string) error {
	rec, ok := s.store.GetStatus(ctx, jobID)
	if !ok {
		return ErrJobNotFound
	}
	if rec.Status != entity.StatusCompleted {
		return &NotCompletedError{Status: rec.Status}
	}
	return nil
}

const (
	FilterInProgress = "in_progress"
	FilterCompleted  = "completed"
	FilterFailed     = "failed"
)

type JobList struct {
	TotalJobs    int                 `json:"total_jobs"`
	StatusFilter string              `json:"status_filter,omitempty"`
	Jobs         []entity.JobSummary `json:"jobs"`
}

// ListJobs returns job summaries, newest first. filter is empty or one of
// in_progress (queued or processing), completed, failed.
func (s *JobService) ListJobs(ctx context.Context, filter string) (JobList, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	match, err := statusFilter(filter)
	if err != nil {
		return JobList{}, err
	}

	jobs := make([]entity.JobSummary, 0)
	for _, rec := range s.store.ListStatuses(ctx) {
		if !match(rec.Status) {
			continue
		}
		sum := entity.JobSummary{
			JobID:            rec.JobID,
			Status:           rec.Status,
			CreatedAt:        rec.CreatedAt,
			CompletedAt:      rec.CompletedAt,
			TotalCandidates:  rec.TotalCandidates,
			PassedCandidates: rec.PassedCandidates,
		}
		if rec.Status == entity.StatusCompleted {
			if res, ok := s.store.GetResult(ctx, rec.JobID); ok {
				sum.Candidates = make([]entity.CandidateSummary, 0, len(res.Candidates))
				for _, c := range res.Candidates {
					sum.Candidates = append(sum.Candidates, entity.CandidateSummary{LinkedInURL: c.LinkedInURL, Score: c.Score})
				}
			}
		}
		jobs = append(jobs, sum)
	}
	return JobList{TotalJobs: len(jobs), StatusFilter: filter, Jobs: jobs}, nil
}

func statusFilter(filter string) (func(entity.JobStatus) bool, error) {
	switch filter {
	case "":
		return func(entity.JobStatus) bool { return true }, nil
	case FilterInProgress:
		return func(s entity.JobStatus) bool { return s == entity.StatusQueued || s == entity.StatusProcessing }, nil
	case FilterCompleted:
		return func(s entity.JobStatus) bool { return s == entity.StatusCompleted }, nil
	case FilterFailed:
		return func(s entity.JobStatus) bool { return s == entity.StatusFailed }, nil
	default:
		return nil, &ValidationError{Field: "status", Value: filter,
			Message: fmt.Sprintf("must be one of %s, %s, %s", FilterInProgress, FilterCompleted, FilterFailed)}
	}
}

// DeleteJobCache removes the job's status and result records.
func (s *JobService) DeleteJobCache(ctx context.Context, jobID string) bool {
	deleted := s.store.DeleteJob(ctx, jobID)
	s.log.Info("jobs.cache_deleted", "job_id", jobID, "deleted", deleted)
	return deleted
}

type HealthReport struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Redis     string      `json:"redis"`
	Queue     *QueueStats `json:"queue,omitempty"`
	QueueErr  string      `json:"queue_error,omitempty"`
}

// Health never fails; an unreachable store is reported, not returned.
func (s *JobService) Health(ctx context.Context) HealthReport {
	rep := HealthReport{Status: "healthy", Timestamp: s.now().UTC(), Redis: "connected"}
	if err := s.store.Ping(ctx); err != nil {
		rep.Status = "degraded"
		rep.Redis = "unavailable"
	}
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		rep.Status = "degraded"
		rep.QueueErr = err.Error()
		return rep
	}
	rep.Queue = &stats
	return rep
}
