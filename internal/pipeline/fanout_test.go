package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"talent-sourcing-service/internal/entity"
)

func TestFanOut_BoundsConcurrency(t *testing.T) {
	c := newCaller(Options{Workers: 2})

	var inFlight, peak atomic.Int32
	items := make([]int, 10)
	out := fanOut(context.Background(), c, items, func(context.Context, int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 1, nil
	})

	assert.Len(t, out, 10)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOut_FillsEverySlotOnCancel(t *testing.T) {
	c := newCaller(Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := fanOut(ctx, c, []string{"a", "b", "c"}, func(context.Context, string) (string, error) {
		return "never", nil
	})
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestCallWithRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	c := newCaller(Options{MaxRetries: 5, BackoffInitial: time.Millisecond})
	var calls atomic.Int32

	_, err := callWithRetry(context.Background(), c, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&entity.TransientError{Err: errors.New("x")}))
	assert.True(t, isTransient(fmt.Errorf("wrapped: %w", &entity.TransientError{})))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.False(t, isTransient(errors.New("x")))
	assert.False(t, isTransient(nil))
}

func TestBackoffSleep(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffSleep(100*time.Millisecond, time.Second, 0, 0))
	assert.Equal(t, 400*time.Millisecond, backoffSleep(100*time.Millisecond, time.Second, 0, 2))
	assert.Equal(t, time.Second, backoffSleep(100*time.Millisecond, time.Second, 0, 10))

	j := backoffSleep(100*time.Millisecond, time.Second, 0.2, 0)
	assert.GreaterOrEqual(t, j, 80*time.Millisecond)
	assert.LessOrEqual(t, j, 120*time.Millisecond)
}
