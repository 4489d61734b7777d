package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/pipeline"
	"talent-sourcing-service/internal/util"
)

const DefaultJobTimeout = 10 * time.Minute

type StatusStore interface {
	MergeStatus(ctx context.Context, jobID string, patch entity.StatusPatch, ttl time.Duration) error
	PutResult(ctx context.Context, jobID string, result entity.JobResult, ttl time.Duration)
	PutCache(ctx context.Context, fingerprint string, result entity.JobResult, ttl time.Duration)
}

type Runner interface {
	Run(ctx context.Context, desc entity.JobDescriptor, progress pipeline.ProgressFunc) (entity.JobResult, error)
}

type Recorder interface {
	RecordStarted()
	RecordCompleted(seconds float64)
	RecordFailed(reason string, seconds float64)
}

type ProcessorConfig struct {
	JobTimeout time.Duration
	StatusTTL  time.Duration
	CacheTTL   time.Duration
}

type Processor struct {
	store   StatusStore
	runner  Runner
	metrics Recorder
	cfg     ProcessorConfig
	log     *slog.Logger
	now     func() time.Time
}

func NewProcessor(store StatusStore, runner Runner, metrics Recorder, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:   store,
		runner:  runner,
		metrics: metrics,
		cfg:     cfg,
		log:     logger.With("component", "worker"),
		now:     time.Now,
	}
}

type runOutcome struct {
	res entity.JobResult
	err error
}

// Process drives one job from queued to a terminal status. A nil return means
// the delivery can be acknowledged; that includes jobs that failed, since the
// failure is recorded in the status record.
func (p *Processor) Process(ctx context.Context, desc entity.JobDescriptor) error {
	start := p.now()
	log := p.log.With("job_id", desc.JobID, "strategy", desc.Strategy, "limit", desc.Limit)

	err := p.store.MergeStatus(ctx, desc.JobID, entity.StatusPatch{
		Status:    entity.Ptr(entity.StatusProcessing),
		StartedAt: entity.Ptr(start.UTC()),
		Progress:  entity.Ptr(5),
		Message:   entity.Ptr("Processing started"),
	}, p.cfg.StatusTTL)
	if errors.Is(err, entity.ErrInvalidTransition) {
		// redelivery of a job that already reached a terminal status
		log.Info("worker.job.skip", "reason", err.Error())
		return nil
	}
	if p.metrics != nil {
		p.metrics.RecordStarted()
	}
	log.Info("worker.job.started")

	var abandoned atomic.Bool
	progress := func(pct int, msg string) {
		if abandoned.Load() {
			return
		}
		_ = p.store.MergeStatus(ctx, desc.JobID, entity.StatusPatch{
			Progress: entity.Ptr(pct),
			Message:  entity.Ptr(msg),
		}, p.cfg.StatusTTL)
	}

	done := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runOutcome{err: fmt.Errorf("pipeline panic: %v", r)}
			}
		}()
		res, err := p.runner.Run(ctx, desc, progress)
		done <- runOutcome{res: res, err: err}
	}()

	timer := time.NewTimer(p.cfg.JobTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			p.fail(ctx, log, desc, start, "pipeline", out.err.Error())
			return nil
		}
		p.complete(ctx, log, desc, start, out.res)
		return nil
	case <-timer.C:
		// in-flight provider calls are left to finish on their own
		abandoned.Store(true)
		p.fail(ctx, log, desc, start, "timeout", fmt.Sprintf("job exceeded timeout of %s", p.cfg.JobTimeout))
		return nil
	}
}

func (p *Processor) complete(ctx context.Context, log *slog.Logger, desc entity.JobDescriptor, start time.Time, res entity.JobResult) {
	res.JobID = desc.JobID
	res.Cached = false
	p.store.PutResult(ctx, desc.JobID, res, p.cfg.StatusTTL)
	if desc.Fingerprint != "" {
		p.store.PutCache(ctx, desc.Fingerprint, res, p.cfg.CacheTTL)
	}

	completedAt := p.now().UTC()
	err := p.store.MergeStatus(ctx, desc.JobID, entity.StatusPatch{
		Status:           entity.Ptr(entity.StatusCompleted),
		CompletedAt:      &completedAt,
		Progress:         entity.Ptr(100),
		Message:          entity.Ptr(fmt.Sprintf("Completed: %d of %d candidates passed", res.PassedCandidates, res.TotalCandidates)),
		TotalCandidates:  entity.Ptr(res.TotalCandidates),
		PassedCandidates: entity.Ptr(res.PassedCandidates),
	}, p.cfg.StatusTTL)
	if err != nil {
		log.Warn("worker.job.complete_rejected", "error", err)
	}

	elapsed := completedAt.Sub(start).Seconds()
	if p.metrics != nil {
		p.metrics.RecordCompleted(elapsed)
	}
	log.Info("worker.job.completed",
		"total", res.TotalCandidates, "passed", res.PassedCandidates,
		"duration_ms", completedAt.Sub(start).Milliseconds())
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, desc entity.JobDescriptor, start time.Time, reason, msg string) {
	msg = util.RedactSecrets(msg)
	completedAt := p.now().UTC()
	err := p.store.MergeStatus(ctx, desc.JobID, entity.StatusPatch{
		Status:      entity.Ptr(entity.StatusFailed),
		CompletedAt: &completedAt,
		Message:     entity.Ptr("Job failed"),
		Error:       &msg,
	}, p.cfg.StatusTTL)
	if err != nil {
		log.Warn("worker.job.fail_rejected", "error", err)
	}

	if p.metrics != nil {
		p.metrics.RecordFailed(reason, completedAt.Sub(start).Seconds())
	}
	log.Error("worker.job.failed", "reason", reason, "error", msg,
		"duration_ms", completedAt.Sub(start).Milliseconds())
}
