package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"talent-sourcing-service/internal/entity"
)

type Queue interface {
	Enqueue(ctx context.Context, desc entity.JobDescriptor) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
	Stats(ctx context.Context) (QueueStats, error)
}

// Delivery is one claimed descriptor. Raw is the exact list element, needed
// to remove it from the processing list on Ack.
type Delivery struct {
	Descriptor entity.JobDescriptor
	Raw        string
	ClaimedAt  time.Time
}

type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
}

type QueueKeys struct {
	QueueKey      string
	ProcessingKey string
	// ClaimsKey is a hash of raw element -> claim time in unix millis.
	ClaimsKey string
}

// ErrMalformedDelivery is returned by ClaimBlocking when the claimed element
// is not a descriptor. The element is dropped from the processing list.
var ErrMalformedDelivery = errors.New("malformed queue element")

// redisReliableQueue implements at-least-once delivery on Redis lists.
// Enqueue: LPUSH queue
// Claim:   BRPOPLPUSH queue -> processing, claim time recorded in ClaimsKey
// Ack:     LREM processing + HDEL claims
// Reaper:  elements claimed longer than the visibility window go back to queue
type redisReliableQueue struct {
	rdb  *redis.Client
	keys QueueKeys
	now  func() time.Time
}

func NewRedisQueue(rdb *redis.Client, keys QueueKeys) Queue {
	return &redisReliableQueue{rdb: rdb, keys: keys, now: time.Now}
}

func (q *redisReliableQueue) Enqueue(ctx context.Context, desc entity.JobDescriptor) error {
	b, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	return q.rdb.LPush(ctx, q.keys.QueueKey, b).Err()
}

// ClaimBlocking waits up to timeout for a descriptor. It returns redis.Nil
// when nothing arrived in time.
func (q *redisReliableQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error) {
	raw, err := q.rdb.BRPopLPush(ctx, q.keys.QueueKey, q.keys.ProcessingKey, timeout).Result()
	if err != nil {
		return Delivery{}, err
	}

	claimedAt := q.now()
	if err := q.rdb.HSet(ctx, q.keys.ClaimsKey, raw, claimedAt.UnixMilli()).Err(); err != nil {
		// the reaper will stamp and eventually requeue it
		return Delivery{}, fmt.Errorf("record claim: %w", err)
	}

	d := Delivery{Raw: raw, ClaimedAt: claimedAt}
	if err := json.Unmarshal([]byte(raw), &d.Descriptor); err != nil || d.Descriptor.JobID == "" {
		_ = q.Ack(ctx, d)
		return Delivery{}, fmt.Errorf("%w: %v", ErrMalformedDelivery, err)
	}
	return d, nil
}

func (q *redisReliableQueue) Ack(ctx context.Context, d Delivery) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.keys.ProcessingKey, 1, d.Raw)
		pipe.HDel(ctx, q.keys.ClaimsKey, d.Raw)
		return nil
	})
	return err
}

// requeueScript moves one element back only if it is still in the
// processing list, so a late Ack and the reaper cannot both act on it.
var requeueScript = redis.NewScript(`
local removed = redis.call('LREM', KEYS[1], 1, ARGV[1])
if removed > 0 then
  redis.call('RPUSH', KEYS[2], ARGV[1])
  redis.call('HDEL', KEYS[3], ARGV[1])
end
return removed
`)

// RequeueStale returns up to max elements whose claim is older than olderThan
// to the consuming end of the queue. Elements without a claim stamp are
// stamped now and considered on a later pass.
func (q *redisReliableQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	items, err := q.rdb.LRange(ctx, q.keys.ProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	cutoff := q.now().Add(-olderThan).UnixMilli()

	var moved int64
	for _, raw := range items {
		if max > 0 && moved >= max {
			break
		}
		stamp, err := q.rdb.HGet(ctx, q.keys.ClaimsKey, raw).Result()
		if errors.Is(err, redis.Nil) {
			_ = q.rdb.HSetNX(ctx, q.keys.ClaimsKey, raw, q.now().UnixMilli()).Err()
			continue
		}
		if err != nil {
			return moved, err
		}
		ms, err := strconv.ParseInt(stamp, 10, 64)
		if err == nil && ms > cutoff {
			continue
		}

		n, err := requeueScript.Run(ctx, q.rdb,
			[]string{q.keys.ProcessingKey, q.keys.QueueKey, q.keys.ClaimsKey}, raw).Int64()
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}

func (q *redisReliableQueue) Stats(ctx context.Context) (QueueStats, error) {
	var pending, processing *redis.IntCmd
	_, err := q.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pending = pipe.LLen(ctx, q.keys.QueueKey)
		processing = pipe.LLen(ctx, q.keys.ProcessingKey)
		return nil
	})
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{Pending: pending.Val(), Processing: processing.Val()}, nil
}
