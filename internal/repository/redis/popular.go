package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/repository"
)

const (
	popularKeyPrefix     = "games:popular:"
	popularGenerationKey = popularKeyPrefix + "generation"
)

// PopularCache implements repository.PopularCache using Redis.
type PopularCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ repository.PopularCache = (*PopularCache)(nil)

// NewPopularCache creates a Redis-backed cache for popular game lists.
func NewPopularCache(client redis.Cmdable, ttl time.Duration) *PopularCache {
	return &PopularCache{client: client, ttl: ttl}
}

func popularKey(generation int64, top int) string {
	return popularKeyPrefix + strconv.FormatInt(generation, 10) + ":" + strconv.Itoa(top)
}

func (c *PopularCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, popularGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get popular generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached list for top in the current generation.
func (c *PopularCache) Get(ctx context.Context, top int) (repository.PopularLookup, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return repository.PopularLookup{}, err
	}
	lookup := repository.PopularLookup{Generation: gen}

	data, err := c.client.Get(ctx, popularKey(gen, top)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return lookup, nil
		}
		return lookup, fmt.Errorf("redis get popular games: %w", err)
	}

	if err := json.Unmarshal(data, &lookup.Games); err != nil {
		return lookup, fmt.Errorf("unmarshal popular games: %w", err)
	}
	lookup.Hit = true
	return lookup, nil
}

// Set stores games for top under generation with the configured TTL. A list
// from an invalidated generation expires unread.
func (c *PopularCache) Set(ctx context.Context, generation int64, top int, games []domain.Game) error {
	data, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("marshal popular games: %w", err)
	}

	if err := c.client.Set(ctx, popularKey(generation, top), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set popular games: %w", err)
	}
	return nil
}

// Invalidate moves the cache to a new generation and drops the cached lists.
func (c *PopularCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, popularGenerationKey).Err(); err != nil {
		return fmt.Errorf("redis incr popular generation: %w", err)
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, popularKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if key := iter.Val(); key != popularGenerationKey {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan popular games: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del popular games: %w", err)
	}
	return nil
}
