package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskline/ticket-sync/internal/domain"
)

// StatsCache holds the computed stats aggregate between mutations.
type StatsCache interface {
	Get(ctx context.Context) (domain.TicketStats, bool, error)
	Set(ctx context.Context, stats domain.TicketStats) error
	Invalidate(ctx context.Context) error
}

const statsCacheKey = "tickets:stats"

// RedisStatsCache stores the stats aggregate as JSON under a single key.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache builds the cache. A non-positive ttl keeps entries until invalidated.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStatsCache{client: client, ttl: ttl}
}

func (c *RedisStatsCache) Get(ctx context.Context) (domain.TicketStats, bool, error) {
	raw, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TicketStats{}, false, nil
	}
	if err != nil {
		return domain.TicketStats{}, false, err
	}
	var stats domain.TicketStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.TicketStats{}, false, err
	}
	return stats, true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, stats domain.TicketStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err()
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsCacheKey).Err()
}
