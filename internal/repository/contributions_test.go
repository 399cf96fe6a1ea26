package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*ContributionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewContributionRepository(client, "contributions", time.Hour), mr
}

func TestContributionRepository_SaveAndGet(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Username:  "OctoCat",
		FetchedAt: fetchedAt,
		Years: []calendar.Year{
			calendar.NewYear("2024", 3, []calendar.Day{calendar.NewDay("2024-01-01", 3, 2)}),
		},
	}
	require.NoError(t, repo.Save(ctx, snap))

	assert.True(t, mr.Exists("contributions:octocat"))
	assert.Equal(t, time.Hour, mr.TTL("contributions:octocat"))

	got, err := repo.Get(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, "OctoCat", got.Username)
	assert.True(t, fetchedAt.Equal(got.FetchedAt))
	require.Len(t, got.Years, 1)
	assert.Equal(t, snap.Years[0], got.Years[0])
	assert.Equal(t, 30*time.Minute, got.Age(fetchedAt.Add(30*time.Minute)))
}

func TestContributionRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestContributionRepository_GetCorrupt(t *testing.T) {
	repo, mr := newTestRepository(t)
	require.NoError(t, mr.Set("contributions:bad", "{not json"))

	_, err := repo.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotNotFound)
}

func TestContributionRepository_Delete(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Snapshot{Username: "x", FetchedAt: time.Now()}))
	require.NoError(t, repo.Delete(ctx, "X"))
	assert.False(t, mr.Exists("contributions:x"))

	assert.NoError(t, repo.Delete(ctx, "x"))
}

func TestContributionRepository_RedisDown(t *testing.T) {
	repo, mr := newTestRepository(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "octocat")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotNotFound)
}
