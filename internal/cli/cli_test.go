package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/service"
)

type fakeJobs struct {
	filter string
}

func (f *fakeJobs) GetStatus(_ context.Context, id string) (entity.StatusRecord, error) {
	if id != "j1" {
		return entity.StatusRecord{}, service.ErrJobNotFound
	}
	return entity.StatusRecord{JobID: "j1", Status: entity.StatusCompleted}, nil
}

func (f *fakeJobs) GetResult(_ context.Context, id string) ([]byte, error) {
	return []byte(`{"job_id":"j1"}`), nil
}

func (f *fakeJobs) Result(_ context.Context, id string) (entity.JobResult, error) {
	return entity.JobResult{JobID: id, Candidates: []entity.CandidateRecord{{}, {}}}, nil
}

func (f *fakeJobs) ListJobs(_ context.Context, filter string) (service.JobList, error) {
	f.filter = filter
	return service.JobList{StatusFilter: filter, Jobs: []entity.JobSummary{}}, nil
}

func (f *fakeJobs) DeleteJobCache(_ context.Context, id string) bool { return id == "j1" }

type fakeQueue struct {
	olderThan time.Duration
	max       int64
}

func (q *fakeQueue) RequeueStale(_ context.Context, olderThan time.Duration, max int64) (int64, error) {
	q.olderThan, q.max = olderThan, max
	return 2, nil
}

func (q *fakeQueue) Stats(context.Context) (service.QueueStats, error) {
	return service.QueueStats{Pending: 4, Processing: 1}, nil
}

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	closed := false
	cmd := BuildCLI(func(context.Context) (*Env, func(), error) {
		return env, func() { closed = true }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	assert.True(t, closed, "env is released")
	return out.String(), err
}

func TestCLI_Jobs(t *testing.T) {
	jobs := &fakeJobs{}
	env := &Env{Jobs: jobs, Queue: &fakeQueue{}}

	out, err := run(t, env, "jobs", "list", "--status", "completed")
	require.NoError(t, err)
	assert.Equal(t, "completed", jobs.filter)
	assert.Contains(t, out, `"status_filter": "completed"`)

	out, err = run(t, env, "jobs", "status", "j1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)

	_, err = run(t, env, "jobs", "status", "missing")
	assert.ErrorIs(t, err, service.ErrJobNotFound)

	out, err = run(t, env, "jobs", "result", "j1")
	require.NoError(t, err)
	assert.Equal(t, "{\"job_id\":\"j1\"}\n", out)

	out, err = run(t, env, "jobs", "delete-cache", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, `"deleted": false`)
}

func TestCLI_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := run(t, &Env{Jobs: &fakeJobs{}}, "jobs", "export", "j1", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 candidates")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))
}

func TestCLI_Queue(t *testing.T) {
	q := &fakeQueue{}
	env := &Env{Jobs: &fakeJobs{}, Queue: q, VisibilityWindow: 11 * time.Minute}

	out, err := run(t, env, "queue", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"pending": 4`)

	out, err = run(t, env, "queue", "requeue-stale")
	require.NoError(t, err)
	assert.Equal(t, "requeued 2 deliveries\n", out)
	assert.Equal(t, 11*time.Minute, q.olderThan)
	assert.Equal(t, int64(100), q.max)

	_, err = run(t, env, "queue", "requeue-stale", "--older-than", "30s", "--max", "5")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, q.olderThan)
	assert.Equal(t, int64(5), q.max)
}
