package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"talent-sourcing-service/internal/entity"
)

type Options struct {
	// Workers bounds concurrent provider calls within one stage of one job.
	Workers        int
	MaxRetries     int
	RequestTimeout time.Duration

	// RateLimitRPS is shared by every stage of the pipeline. <=0 disables it.
	RateLimitRPS float64

	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 5
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// Outcome is the tagged per-item result of a stage: either Value or Err.
type Outcome[T any] struct {
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool { return o.Err == nil }

// caller runs provider calls with retry, backoff, a per-call timeout and the
// shared rate limiter.
type caller struct {
	opts    Options
	limiter *rate.Limiter
}

func newCaller(opts Options) *caller {
	c := &caller{opts: opts.withDefaults()}
	if c.opts.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.opts.RateLimitRPS), 1)
	}
	return c
}

// fanOut applies fn to every item with bounded concurrency. The returned
// slice is indexed like items regardless of completion order, and every slot
// is filled: a failing or panicking call only affects its own slot.
func fanOut[In, Out any](ctx context.Context, c *caller, items []In, fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	out := make([]Outcome[Out], len(items))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			v, err := callWithRetry(ctx, c, func(ctx context.Context) (Out, error) {
				return fn(ctx, item)
			})
			out[i] = Outcome[Out]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func callWithRetry[T any](ctx context.Context, c *caller, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	attempts := 1 + c.opts.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		v, err := callOnce(ctx, c.opts.RequestTimeout, fn)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
		if !isTransient(err) || attempt == attempts-1 {
			return zero, err
		}

		t := time.NewTimer(backoffSleep(c.opts.BackoffInitial, c.opts.BackoffMax, c.opts.BackoffJitterFrac, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(reqCtx)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *entity.TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
