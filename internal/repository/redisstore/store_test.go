package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-sourcing-service/internal/entity"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, nil), mr
}

func TestStore_CreateAndMergeStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.CreateStatus(ctx, entity.StatusRecord{
		JobID:     "job-1",
		Status:    entity.StatusQueued,
		CreatedAt: created,
		Message:   "queued",
	}, time.Hour))

	started := created.Add(time.Minute)
	require.NoError(t, s.MergeStatus(ctx, "job-1", entity.StatusPatch{
		Status:    entity.Ptr(entity.StatusProcessing),
		StartedAt: &started,
		Progress:  entity.Ptr(10),
	}, time.Hour))

	rec, ok := s.GetStatus(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusProcessing, rec.Status)
	assert.Equal(t, "queued", rec.Message, "fields absent from the patch are kept")
	assert.True(t, rec.CreatedAt.Equal(created))
	require.NotNil(t, rec.StartedAt)
	assert.True(t, rec.StartedAt.Equal(started))
	require.NotNil(t, rec.Progress)
	assert.Equal(t, 10, *rec.Progress)
}

func TestStore_CreateStatusTwiceFails(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	rec := entity.StatusRecord{JobID: "dup", Status: entity.StatusQueued}
	require.NoError(t, s.CreateStatus(ctx, rec, time.Hour))
	assert.ErrorIs(t, s.CreateStatus(ctx, rec, time.Hour), ErrStatusExists)
}

func TestStore_MergeStatusRejectsTerminalRecords(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.CreateStatus(ctx, entity.StatusRecord{JobID: "j", Status: entity.StatusQueued}, time.Hour))
	require.NoError(t, s.MergeStatus(ctx, "j", entity.StatusPatch{Status: entity.Ptr(entity.StatusProcessing)}, time.Hour))
	require.NoError(t, s.MergeStatus(ctx, "j", entity.StatusPatch{Status: entity.Ptr(entity.StatusCompleted)}, time.Hour))

	err := s.MergeStatus(ctx, "j", entity.StatusPatch{Status: entity.Ptr(entity.StatusProcessing)}, time.Hour)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))

	err = s.MergeStatus(ctx, "j", entity.StatusPatch{Progress: entity.Ptr(40)}, time.Hour)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	rec, ok := s.GetStatus(ctx, "j")
	require.True(t, ok)
	assert.Equal(t, entity.StatusCompleted, rec.Status)
	assert.Nil(t, rec.Progress)
}

func TestStore_MergeStatusAppliesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.MergeStatus(ctx, "ttl", entity.StatusPatch{Status: entity.Ptr(entity.StatusQueued)}, time.Minute))
	_, ok := s.GetStatus(ctx, "ttl")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok = s.GetStatus(ctx, "ttl")
	assert.False(t, ok)
}

func TestStore_ResultAndCache(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	res := entity.JobResult{
		JobID:            "r1",
		TotalCandidates:  1,
		PassedCandidates: 1,
		PassRate:         "100.0%",
		Candidates:       []entity.CandidateRecord{{CandidateProfile: entity.CandidateProfile{Name: "Ada"}, Score: 9.1}},
	}
	s.PutResult(ctx, "r1", res, time.Hour)
	s.PutCache(ctx, "fp", res, time.Hour)

	first, ok := s.GetResultRaw(ctx, "r1")
	require.True(t, ok)
	second, ok := s.GetResultRaw(ctx, "r1")
	require.True(t, ok)
	assert.Equal(t, first, second)

	got, ok := s.GetCache(ctx, "fp")
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Candidates[0].Name)

	_, ok = s.GetCache(ctx, "other")
	assert.False(t, ok)
}

func TestStore_DeleteJob(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	assert.False(t, s.DeleteJob(ctx, "unknown"))

	require.NoError(t, s.CreateStatus(ctx, entity.StatusRecord{JobID: "d", Status: entity.StatusQueued}, time.Hour))
	s.PutResult(ctx, "d", entity.JobResult{JobID: "d"}, time.Hour)
	s.PutCache(ctx, "fp-d", entity.JobResult{JobID: "d"}, time.Hour)

	assert.True(t, s.DeleteJob(ctx, "d"))
	_, ok := s.GetStatus(ctx, "d")
	assert.False(t, ok)
	_, ok = s.GetResultRaw(ctx, "d")
	assert.False(t, ok)
	_, ok = s.GetCache(ctx, "fp-d")
	assert.True(t, ok, "fingerprint cache is not part of a job's keys")
}

func TestStore_ListStatusesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateStatus(ctx, entity.StatusRecord{
			JobID:     id,
			Status:    entity.StatusQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}, time.Hour))
	}
	s.PutResult(ctx, "a", entity.JobResult{JobID: "a"}, time.Hour)

	got := s.ListStatuses(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].JobID, got[1].JobID, got[2].JobID})
}

func TestStore_FailOpenWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	mr.Close()

	_, ok := s.GetStatus(ctx, "x")
	assert.False(t, ok)
	_, ok = s.GetCache(ctx, "fp")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		s.PutResult(ctx, "x", entity.JobResult{}, time.Hour)
		s.PutCache(ctx, "fp", entity.JobResult{}, time.Hour)
	})
	assert.NoError(t, s.MergeStatus(ctx, "x", entity.StatusPatch{Progress: entity.Ptr(5)}, time.Hour))
	assert.False(t, s.DeleteJob(ctx, "x"))
	assert.Empty(t, s.ListStatuses(ctx))

	assert.Error(t, s.CreateStatus(ctx, entity.StatusRecord{JobID: "x"}, time.Hour))
	assert.Error(t, s.Ping(ctx))
}
