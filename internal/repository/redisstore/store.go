// Package redisstore keeps job status records, job results and the
// fingerprint cache in Redis.
//
// Every operation except CreateStatus is fail-open: when Redis is unreachable
// reads report "not found" and writes are dropped after being logged.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"talent-sourcing-service/internal/entity"
)

const (
	statusPrefix = "job_status:"
	resultPrefix = "job_results:"
	cachePrefix  = "sourcing:cache:"

	maxMergeAttempts = 5
	scanBatch        = 200
)

var ErrStatusExists = errors.New("status record already exists")

type Store struct {
	rdb *redis.Client
	log *slog.Logger
}

func New(rdb *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{rdb: rdb, log: logger.With("component", "redisstore")}
}

func statusKey(jobID string) string { return statusPrefix + jobID }
func resultKey(jobID string) string { return resultPrefix + jobID }
func cacheKey(fp string) string     { return cachePrefix + fp }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// CreateStatus writes the initial record of a job. Unlike the other writes it
// reports failures, since a job without a status record cannot be tracked.
func (s *Store) CreateStatus(ctx context.Context, rec entity.StatusRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, statusKey(rec.JobID), b, ttl).Result()
	if err != nil {
		return fmt.Errorf("create status %s: %w", rec.JobID, err)
	}
	if !ok {
		return ErrStatusExists
	}
	return nil
}

func (s *Store) GetStatus(ctx context.Context, jobID string) (entity.StatusRecord, bool) {
	var rec entity.StatusRecord
	if !s.getJSON(ctx, statusKey(jobID), &rec) {
		return entity.StatusRecord{}, false
	}
	return rec, true
}

// MergeStatus shallow-merges patch into the stored record under WATCH so
// concurrent writers never lose each other's fields. The only error it returns
// is entity.ErrInvalidTransition; store failures are logged and swallowed.
func (s *Store) MergeStatus(ctx context.Context, jobID string, patch entity.StatusPatch, ttl time.Duration) error {
	fields, err := patch.Fields()
	if err != nil {
		s.log.Error("store.status.bad_patch", "job_id", jobID, "error", err)
		return nil
	}
	key := statusKey(jobID)

	var rejected error
	txf := func(tx *redis.Tx) error {
		rejected = nil
		current := map[string]json.RawMessage{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
		}

		var prev entity.JobStatus
		if v, ok := current["status"]; ok {
			_ = json.Unmarshal(v, &prev)
		}
		if !prev.Accepts(patch) {
			rejected = fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, prev, patchStatus(patch, prev))
			return nil
		}

		for k, v := range fields {
			current[k] = v
		}
		if _, ok := current["job_id"]; !ok {
			current["job_id"], _ = json.Marshal(jobID)
		}
		merged, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			s.log.Warn("store.status.merge_error", "job_id", jobID, "error", err)
			return nil
		}
		return rejected
	}
	s.log.Warn("store.status.merge_contended", "job_id", jobID, "attempts", maxMergeAttempts)
	return nil
}

func patchStatus(p entity.StatusPatch, prev entity.JobStatus) entity.JobStatus {
	if p.Status != nil {
		return *p.Status
	}
	return prev
}

// GetResultRaw returns the stored bytes untouched so repeated reads of a
// completed job are byte-identical.
func (s *Store) GetResultRaw(ctx context.Context, jobID string) ([]byte, bool) {
	return s.getRaw(ctx, resultKey(jobID))
}

func (s *Store) GetResult(ctx context.Context, jobID string) (entity.JobResult, bool) {
	var res entity.JobResult
	if !s.getJSON(ctx, resultKey(jobID), &res) {
		return entity.JobResult{}, false
	}
	return res, true
}

func (s *Store) PutResult(ctx context.Context, jobID string, result entity.JobResult, ttl time.Duration) {
	s.setJSON(ctx, resultKey(jobID), result, ttl)
}

func (s *Store) GetCache(ctx context.Context, fingerprint string) (entity.JobResult, bool) {
	var res entity.JobResult
	if !s.getJSON(ctx, cacheKey(fingerprint), &res) {
		return entity.JobResult{}, false
	}
	return res, true
}

func (s *Store) PutCache(ctx context.Context, fingerprint string, result entity.JobResult, ttl time.Duration) {
	s.setJSON(ctx, cacheKey(fingerprint), result, ttl)
}

// DeleteJob removes the status and result keys of a job.
func (s *Store) DeleteJob(ctx context.Context, jobID string) bool {
	n, err := s.rdb.Del(ctx, statusKey(jobID), resultKey(jobID)).Result()
	if err != nil {
		s.log.Warn("store.delete_error", "job_id", jobID, "error", err)
		return false
	}
	return n > 0
}

// ListStatuses returns every live status record, newest first.
func (s *Store) ListStatuses(ctx context.Context) []entity.StatusRecord {
	var (
		cursor uint64
		out    []entity.StatusRecord
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, statusPrefix+"*", scanBatch).Result()
		if err != nil {
			s.log.Warn("store.status.scan_error", "error", err)
			return out
		}
		if len(keys) > 0 {
			vals, err := s.rdb.MGet(ctx, keys...).Result()
			if err != nil {
				s.log.Warn("store.status.mget_error", "error", err)
				return out
			}
			for i, v := range vals {
				str, ok := v.(string)
				if !ok {
					continue
				}
				var rec entity.StatusRecord
				if err := json.Unmarshal([]byte(str), &rec); err != nil {
					s.log.Warn("store.status.decode_error", "key", keys[i], "error", err)
					continue
				}
				out = append(out, rec)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) getRaw(ctx context.Context, key string) ([]byte, bool) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("store.get_error", "key", key, "error", err)
		}
		return nil, false
	}
	return b, true
}

func (s *Store) getJSON(ctx context.Context, key string, v any) bool {
	b, ok := s.getRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.log.Warn("store.decode_error", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("store.encode_error", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		s.log.Warn("store.set_error", "key", key, "error", err)
	}
}
