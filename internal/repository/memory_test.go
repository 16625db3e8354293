package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rec := &CatalogRecord{
		Name: "a.txt", FileType: "text/plain", Size: 5, Version: 1,
		Hash: "abc", Tags: []string{"x"}, UploadedAt: t0, ModifiedAt: t0,
		Metadata: map[string]interface{}{"lines": 1},
	}
	require.NoError(t, repo.Upsert(ctx, rec))
	rec.Tags[0] = "mutated"

	got, err := repo.GetByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Tags)
	assert.Equal(t, 1, got.Metadata["lines"])

	require.NoError(t, repo.UpdateTags(ctx, "a.txt", []string{"y", "z"}, t0.Add(time.Minute)))
	got, err = repo.GetByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, got.Tags)
	assert.Equal(t, t0.Add(time.Minute), got.ModifiedAt)

	require.NoError(t, repo.Delete(ctx, "a.txt"))
	require.NoError(t, repo.Delete(ctx, "a.txt"))
	_, err = repo.GetByName(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateTags(ctx, "a.txt", nil, t0), ErrNotFound)
}

func TestMemoryRepoListAllOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, &CatalogRecord{Name: "old", ModifiedAt: t0}))
	require.NoError(t, repo.Upsert(ctx, &CatalogRecord{Name: "new", ModifiedAt: t0.Add(time.Hour)}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].Name)
	assert.Equal(t, "old", all[1].Name)
}

func TestMemoryRepoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryRepo()

	assert.ErrorIs(t, repo.Upsert(ctx, &CatalogRecord{Name: "x"}), context.Canceled)
	assert.ErrorIs(t, repo.Ping(ctx), context.Canceled)
}

func TestDSNConfigForcesParseTime(t *testing.T) {
	cfg, err := DSNConfig("root:pw@tcp(127.0.0.1:3306)/chunkvault")
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "chunkvault", cfg.DBName)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.True(t, cfg.ClientFoundRows)

	_, err = DSNConfig("not a dsn")
	assert.Error(t, err)
}
