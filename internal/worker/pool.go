package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/service"
)

type JobProcessor interface {
	Process(ctx context.Context, desc entity.JobDescriptor) error
}

// Pool runs at most workers jobs at a time. One listener claims deliveries
// from the queue and hands them to the workers over an unbuffered channel, so
// nothing is claimed while every worker is busy.
type Pool struct {
	queue      service.Queue
	processor  JobProcessor
	workers    int
	claimDelay time.Duration
	log        *slog.Logger
}

func NewPool(queue service.Queue, processor JobProcessor, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		log:        logger.With("component", "pool"),
	}
}

// Run blocks until ctx is cancelled and every in-flight job has finished.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info("pool.started", "workers", p.workers)

	jobCh := make(chan service.Delivery)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for d := range jobCh {
				p.handle(ctx, n, d)
			}
		}(i + 1)
	}

	defer func() {
		close(jobCh)
		wg.Wait()
		p.log.Info("pool.stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		d, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), ctx.Err() != nil:
			case errors.Is(err, service.ErrMalformedDelivery):
				p.log.Warn("pool.claim.malformed", "error", err)
			default:
				p.log.Warn("pool.claim.error", "error", err)
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		select {
		case jobCh <- d:
		case <-ctx.Done():
			// still in the processing list; the reaper hands it back
			return
		}
	}
}

func (p *Pool) handle(ctx context.Context, n int, d service.Delivery) {
	// a started job runs to completion even during shutdown
	jobCtx := context.WithoutCancel(ctx)
	log := p.log.With("worker", n, "job_id", d.Descriptor.JobID)

	if err := p.processor.Process(jobCtx, d.Descriptor); err != nil {
		// left unacked so the reaper redelivers it
		log.Error("pool.process.error", "error", err)
		return
	}
	if err := p.queue.Ack(jobCtx, d); err != nil {
		log.Warn("pool.ack.error", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
