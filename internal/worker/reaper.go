package worker

import (
	"context"
	"log/slog"
	"time"

	"talent-sourcing-service/internal/service"
)

// StaleRequeuer is the part of the queue the reaper drives.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
	Stats(ctx context.Context) (service.QueueStats, error)
}

type QueueGauge interface {
	UpdateQueueStats(pending, processing int64)
}

// Pruner drops enrichment cache rows older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReaperConfig struct {
	Interval time.Duration
	// Visibility is how long a delivery may stay claimed before it is
	// handed back to the queue.
	Visibility time.Duration
	Batch      int64

	// Prune and PruneAge are optional.
	Prune    Pruner
	PruneAge time.Duration
}

// Reaper returns deliveries orphaned by crashed workers to the queue and
// publishes queue depth.
type Reaper struct {
	queue StaleRequeuer
	gauge QueueGauge
	cfg   ReaperConfig
	now   func() time.Time
	log   *slog.Logger
}

func NewReaper(queue StaleRequeuer, gauge QueueGauge, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Visibility <= 0 {
		cfg.Visibility = DefaultJobTimeout + time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{queue: queue, gauge: gauge, cfg: cfg, now: time.Now, log: logger.With("component", "reaper")}
}

// Tick runs one reap cycle.
func (r *Reaper) Tick(ctx context.Context) {
	n, err := r.queue.RequeueStale(ctx, r.cfg.Visibility, r.cfg.Batch)
	switch {
	case err != nil:
		r.log.Error("reaper.requeue.failed", "error", err)
	case n > 0:
		r.log.Info("reaper.requeued", "count", n)
	}

	if r.gauge != nil {
		if st, err := r.queue.Stats(ctx); err == nil {
			r.gauge.UpdateQueueStats(st.Pending, st.Processing)
		}
	}

	if r.cfg.Prune != nil && r.cfg.PruneAge > 0 {
		n, err := r.cfg.Prune.DeleteOlderThan(ctx, r.now().Add(-r.cfg.PruneAge))
		if err != nil {
			r.log.Warn("reaper.prune.failed", "error", err)
		} else if n > 0 {
			r.log.Info("reaper.pruned", "rows", n)
		}
	}
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Tick(ctx)
		}
	}
}
