package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/pipeline"
	"talent-sourcing-service/internal/repository/redisstore"
	"talent-sourcing-service/internal/service"
)

type fakeRunner struct {
	res     entity.JobResult
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, desc entity.JobDescriptor, progress pipeline.ProgressFunc) (entity.JobResult, error) {
	if f.started != nil {
		close(f.started)
	}
	progress(25, "searched")
	if f.block != nil {
		<-f.block
		progress(50, "late")
	}
	return f.res, f.err
}

type fakeRecorder struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    []string
}

func (r *fakeRecorder) RecordStarted() { r.mu.Lock(); r.started++; r.mu.Unlock() }
func (r *fakeRecorder) RecordCompleted(float64) {
	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
}
func (r *fakeRecorder) RecordFailed(reason string, _ float64) {
	r.mu.Lock()
	r.failed = append(r.failed, reason)
	r.mu.Unlock()
}

func newStore(t *testing.T) (*redisstore.Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstore.New(rdb, nil), rdb
}

func queuedJob(t *testing.T, st *redisstore.Store, id string) entity.JobDescriptor {
	t.Helper()
	desc := entity.JobDescriptor{
		JobID:           id,
		RequirementText: "Senior Go engineer in Berlin",
		Strategy:        entity.StrategyRapidAPI,
		Limit:           3,
		Fingerprint:     "fp-" + id,
	}
	require.NoError(t, st.CreateStatus(context.Background(), entity.StatusRecord{
		JobID:     id,
		Status:    entity.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}, time.Hour))
	return desc
}

func TestProcessor_CompletesJob(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	desc := queuedJob(t, st, "job-1")
	rec := &fakeRecorder{}
	runner := &fakeRunner{res: entity.JobResult{
		TotalCandidates: 2, PassedCandidates: 1, FailedCandidates: 1, PassRate: "50.0%",
		Candidates: []entity.CandidateRecord{{Passed: true}, {}},
	}}

	p := NewProcessor(st, runner, rec, ProcessorConfig{}, nil)
	require.NoError(t, p.Process(ctx, desc))

	status, ok := st.GetStatus(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusCompleted, status.Status)
	require.NotNil(t, status.StartedAt)
	require.NotNil(t, status.CompletedAt)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 100, *status.Progress)
	require.NotNil(t, status.TotalCandidates)
	assert.Equal(t, 2, *status.TotalCandidates)
	assert.Equal(t, 1, *status.PassedCandidates)

	res, ok := st.GetResult(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, "job-1", res.JobID)
	assert.False(t, res.Cached)

	cached, ok := st.GetCache(ctx, "fp-job-1")
	require.True(t, ok)
	assert.Equal(t, res.TotalCandidates, cached.TotalCandidates)

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 1, rec.completed)
}

func TestProcessor_QueuedProcessingCompleted(t *testing.T) {
	ctx := context.Background()
	st, rdb := newStore(t)
	q := service.NewRedisQueue(rdb, service.QueueKeys{
		QueueKey: "q", ProcessingKey: "q:processing", ClaimsKey: "q:claims",
	})
	jobs := service.NewJobService(st, q, nil, service.JobServiceConfig{}, nil)

	sub, err := jobs.Submit(ctx, service.SubmitRequest{
		RequirementText: "Senior Go engineer in Berlin",
		Strategy:        entity.StrategyRapidAPI,
		Limit:           2,
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusQueued, sub.Status)

	status, err := jobs.GetStatus(ctx, sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQueued, status.Status)
	assert.Nil(t, status.StartedAt)

	d, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, sub.JobID, d.Descriptor.JobID)

	runner := &fakeRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}),
		res: entity.JobResult{
			TotalCandidates: 2, PassedCandidates: 1, FailedCandidates: 1, PassRate: "50.0%",
			Candidates: []entity.CandidateRecord{{Passed: true}, {}},
		},
	}
	p := NewProcessor(st, runner, nil, ProcessorConfig{}, nil)

	done := make(chan error, 1)
	go func() { done <- p.Process(ctx, d.Descriptor) }()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not start")
	}

	require.Eventually(t, func() bool {
		rec, err := jobs.GetStatus(ctx, sub.JobID)
		return err == nil && rec.Progress != nil && *rec.Progress == 25
	}, 2*time.Second, 5*time.Millisecond)

	status, err = jobs.GetStatus(ctx, sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusProcessing, status.Status)
	assert.NotNil(t, status.StartedAt)
	assert.Nil(t, status.CompletedAt)

	_, err = jobs.GetResult(ctx, sub.JobID)
	var nc *service.NotCompletedError
	assert.ErrorAs(t, err, &nc, "no partial result while processing")

	close(runner.block)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}

	status, err = jobs.GetStatus(ctx, sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, status.Status)
	assert.NotNil(t, status.StartedAt)
	assert.NotNil(t, status.CompletedAt)
	require.NotNil(t, status.TotalCandidates)
	assert.Equal(t, 2, *status.TotalCandidates)
	assert.Equal(t, 1, *status.PassedCandidates)

	_, err = jobs.GetResult(ctx, sub.JobID)
	assert.NoError(t, err)
}

func TestProcessor_PipelineFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	desc := queuedJob(t, st, "job-2")
	rec := &fakeRecorder{}
	runner := &fakeRunner{err: errors.New("search stage: upstream said Bearer abc.def.ghi is invalid")}

	require.NoError(t, NewProcessor(st, runner, rec, ProcessorConfig{}, nil).Process(ctx, desc))

	status, ok := st.GetStatus(ctx, "job-2")
	require.True(t, ok)
	assert.Equal(t, entity.StatusFailed, status.Status)
	assert.Contains(t, status.Error, "search stage")
	assert.NotContains(t, status.Error, "abc.def.ghi")
	require.NotNil(t, status.CompletedAt)

	_, ok = st.GetResult(ctx, "job-2")
	assert.False(t, ok, "no partial result for a failed job")
	assert.Equal(t, []string{"pipeline"}, rec.failed)
}

func TestProcessor_TimeoutAbandonsRun(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	desc := queuedJob(t, st, "job-3")
	rec := &fakeRecorder{}
	runner := &fakeRunner{block: make(chan struct{}), res: entity.JobResult{TotalCandidates: 1}}

	p := NewProcessor(st, runner, rec, ProcessorConfig{JobTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, p.Process(ctx, desc))

	status, _ := st.GetStatus(ctx, "job-3")
	assert.Equal(t, entity.StatusFailed, status.Status)
	assert.Equal(t, "job exceeded timeout of 50ms", status.Error)
	assert.Equal(t, []string{"timeout"}, rec.failed)

	close(runner.block)
	time.Sleep(20 * time.Millisecond)
	status, _ = st.GetStatus(ctx, "job-3")
	assert.Equal(t, entity.StatusFailed, status.Status)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 25, *status.Progress, "progress from the abandoned run is dropped")
}

func TestProcessor_SkipsTerminalRedelivery(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	desc := queuedJob(t, st, "job-4")
	require.NoError(t, NewProcessor(st, &fakeRunner{}, nil, ProcessorConfig{}, nil).Process(ctx, desc))

	runner := &fakeRunner{started: make(chan struct{})}
	rec := &fakeRecorder{}
	require.NoError(t, NewProcessor(st, runner, rec, ProcessorConfig{}, nil).Process(ctx, desc))

	select {
	case <-runner.started:
		t.Fatal("pipeline must not run for a completed job")
	default:
	}
	assert.Equal(t, 0, rec.started)
}

type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (r *recordingProcessor) Process(_ context.Context, d entity.JobDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, d.JobID)
	return r.err
}

func (r *recordingProcessor) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func newQueue(t *testing.T) service.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return service.NewRedisQueue(rdb, service.QueueKeys{
		QueueKey: "q", ProcessingKey: "q:processing", ClaimsKey: "q:claims",
	})
}

func runPool(t *testing.T, q service.Queue, proc JobProcessor, until func() bool) {
	t.Helper()
	pool := NewPool(q, proc, 3, nil)
	pool.claimDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, until, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestPool_ProcessesAndAcks(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(ctx, entity.JobDescriptor{JobID: id}))
	}

	proc := &recordingProcessor{}
	runPool(t, q, proc, func() bool { return len(proc.ids()) == 4 })

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, proc.ids())
	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.QueueStats{}, stats)
}

func TestPool_ProcessErrorLeavesDeliveryForReaper(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t)
	require.NoError(t, q.Enqueue(ctx, entity.JobDescriptor{JobID: "x"}))

	proc := &recordingProcessor{err: errors.New("store down")}
	runPool(t, q, proc, func() bool { return len(proc.ids()) == 1 })

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Processing)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReporter_Check(t *testing.T) {
	hs := health.NewServer()

	up := NewHealthReporter(hs, stubPinger{}, 0, nil)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, up.Check(context.Background()))

	down := NewHealthReporter(hs, stubPinger{err: errors.New("refused")}, 0, nil)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, down.Check(context.Background()))

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
