package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CloudGames/internal/domain"
)

func setupCache(t *testing.T) (*PopularCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPopularCache(client, 30*time.Second), mr
}

func sampleGames() []domain.Game {
	return []domain.Game{
		{
			ID:          "6f1c2c1e-8a0b-4b8e-9a55-2d6b1f1e7c11",
			Title:       "Elden Ring",
			Price:       domain.MustPrice("249.90"),
			ReleaseDate: time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC),
			Developer:   domain.StringPtr("FromSoftware"),
		},
	}
}

func TestPopularCache_SetAndGet(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, 10, sampleGames()))

	lookup, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	require.True(t, lookup.Hit)
	assert.Equal(t, int64(0), lookup.Generation)
	require.Len(t, lookup.Games, 1)
	assert.Equal(t, "Elden Ring", lookup.Games[0].Title)
	assert.True(t, lookup.Games[0].Price.Equal(domain.MustPrice("249.9")))
	assert.True(t, lookup.Games[0].ReleaseDate.Equal(time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC)))

	assert.True(t, mr.Exists("games:popular:0:10"))
	assert.Equal(t, 30*time.Second, mr.TTL("games:popular:0:10"))
}

func TestPopularCache_Miss(t *testing.T) {
	cache, _ := setupCache(t)

	lookup, err := cache.Get(context.Background(), 5)
	assert.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Nil(t, lookup.Games)
}

func TestPopularCache_Expires(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, 10, sampleGames()))
	mr.FastForward(31 * time.Second)

	lookup, err := cache.Get(ctx, 10)
	assert.NoError(t, err)
	assert.False(t, lookup.Hit)
}

func TestPopularCache_InvalidateDropsOnlyPopularKeys(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, 10, sampleGames()))
	require.NoError(t, cache.Set(ctx, 0, 25, sampleGames()))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, cache.Invalidate(ctx))

	assert.False(t, mr.Exists("games:popular:0:10"))
	assert.False(t, mr.Exists("games:popular:0:25"))
	assert.True(t, mr.Exists("unrelated"))

	lookup, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Equal(t, int64(1), lookup.Generation)

	// Invalidating an empty cache still starts a new generation.
	require.NoError(t, cache.Invalidate(ctx))
	lookup, err = cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), lookup.Generation)
}

func TestPopularCache_StaleGenerationWriteIsInvisible(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	lookup, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	require.False(t, lookup.Hit)

	// A mutation lands while the reader is querying the index.
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, lookup.Generation, 10, sampleGames()))

	lookup, err = cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
}

func TestPopularCache_CorruptEntry(t *testing.T) {
	cache, mr := setupCache(t)
	require.NoError(t, mr.Set("games:popular:0:10", "{not json"))

	_, err := cache.Get(context.Background(), 10)
	assert.Error(t, err)
}

func TestPopularCache_CorruptGeneration(t *testing.T) {
	cache, mr := setupCache(t)
	require.NoError(t, mr.Set("games:popular:generation", "abc"))

	_, err := cache.Get(context.Background(), 10)
	assert.Error(t, err)
}

func TestPopularCache_ServerDown(t *testing.T) {
	cache, mr := setupCache(t)
	mr.Close()

	_, err := cache.Get(context.Background(), 10)
	assert.Error(t, err)
	assert.Error(t, cache.Invalidate(context.Background()))
}
