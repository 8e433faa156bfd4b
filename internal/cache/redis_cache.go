package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kinmel/backend/internal/domain"
)

type RedisPreviewCache struct {
	client *redis.Client
}

func NewRedisPreviewCache(addr string, password string, db int) *RedisPreviewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPreviewCache{client: client}
}

func (c *RedisPreviewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPreviewCache) Close() error {
	return c.client.Close()
}

func (c *RedisPreviewCache) Get(ctx context.Context, key string) (*domain.AllocationPlan, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var plan domain.AllocationPlan
	if err := json.Unmarshal([]byte(val), &plan); err != nil {
		return nil, false, err
	}
	return &plan, true, nil
}

func (c *RedisPreviewCache) Set(ctx context.Context, key string, value *domain.AllocationPlan, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
