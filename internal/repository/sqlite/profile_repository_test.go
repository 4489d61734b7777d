package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-sourcing-service/internal/entity"
)

func newRepo(t *testing.T) *ProfileRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewProfileRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestProfileRepository_GetMissing(t *testing.T) {
	_, ok, err := newRepo(t).Get(context.Background(), "url:nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileRepository_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	fetched := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, "url:ada", entity.AuxiliaryData{Source: "github", Bio: "v1", FetchedAt: fetched}))
	require.NoError(t, repo.Put(ctx, "url:ada", entity.AuxiliaryData{
		Source:    "github",
		Bio:       "v2",
		Skills:    []string{"Go"},
		GitHub:    &entity.GitHubSummary{Username: "ada"},
		FetchedAt: fetched.Add(time.Hour),
	}))

	got, ok, err := repo.Get(ctx, "url:ada")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Bio)
	assert.Equal(t, []string{"Go"}, got.Skills)
	assert.Equal(t, "ada", got.GitHub.Username)
	assert.True(t, got.FetchedAt.Equal(fetched.Add(time.Hour)))
}

func TestProfileRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, "old", entity.AuxiliaryData{Source: "s", FetchedAt: base}))
	require.NoError(t, repo.Put(ctx, "new", entity.AuxiliaryData{Source: "s", FetchedAt: base.Add(8 * 24 * time.Hour)}))

	n, err := repo.DeleteOlderThan(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := repo.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}
