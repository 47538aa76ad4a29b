package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"auto_sniper/models"
)

const defaultCoordsKey = "auto_sniper:coords"

// RedisCoordsCache keeps resolved places in a single Redis hash so several
// workers share one geocoding cache.
type RedisCoordsCache struct {
	client *redis.Client
	key    string
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisCoordsCache(client *redis.Client, key string) *RedisCoordsCache {
	if key == "" {
		key = defaultCoordsKey
	}
	return &RedisCoordsCache{client: client, key: key}
}

func (c *RedisCoordsCache) Get(ctx context.Context, place string) (models.Coordinates, bool, error) {
	raw, err := c.client.HGet(ctx, c.key, place).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Coordinates{}, false, nil
	}
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("redis hget: %w", err)
	}

	var coords models.Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		return models.Coordinates{}, false, fmt.Errorf("decode coords for %q: %w", place, err)
	}
	return coords, true, nil
}

func (c *RedisCoordsCache) Set(ctx context.Context, place string, coords models.Coordinates) error {
	raw, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.key, place, raw).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Flush is a no-op; Redis persists on its own schedule.
func (c *RedisCoordsCache) Flush(context.Context) error {
	return nil
}

func (c *RedisCoordsCache) Close() error {
	return c.client.Close()
}
