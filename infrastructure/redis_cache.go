package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"adledger/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	cacheKeyPrefix = "adledger:"
	statsCacheKey  = cacheKeyPrefix + "stats"
)

// RedisCache is a TTL-bounded read cache for user views and ledger stats
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}

// NewRedisCache creates a read cache on top of client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func userCacheKey(id int64) string {
	return cacheKeyPrefix + "user:" + strconv.FormatInt(id, 10)
}

// GetUser returns the cached user or nil on a miss
func (c *RedisCache) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	found, err := c.get(ctx, userCacheKey(id), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// SetUser caches a user view for the configured TTL
func (c *RedisCache) SetUser(ctx context.Context, user *models.User) error {
	return c.set(ctx, userCacheKey(user.ID), user)
}

// InvalidateUsers drops the given users and the stats snapshot
func (c *RedisCache) InvalidateUsers(ctx context.Context, ids ...int64) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, userCacheKey(id))
	}
	keys = append(keys, statsCacheKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached users: %w", err)
	}
	return nil
}

// GetStats returns the cached ledger stats or nil on a miss
func (c *RedisCache) GetStats(ctx context.Context) (*models.LedgerStats, error) {
	var stats models.LedgerStats
	found, err := c.get(ctx, statsCacheKey, &stats)
	if err != nil || !found {
		return nil, err
	}
	return &stats, nil
}

// SetStats caches a stats snapshot for the configured TTL
func (c *RedisCache) SetStats(ctx context.Context, stats *models.LedgerStats) error {
	return c.set(ctx, statsCacheKey, stats)
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is treated as a miss and removed
		c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}
