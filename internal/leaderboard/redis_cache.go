package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	profileKeyPrefix  = "gm:profile:"
	DefaultProfileTTL = 6 * time.Hour
)

// nullProfile marks a known absence, distinct from a missing key.
const nullProfile = "null"

// RedisProfileCache shares profile lookups between processes (bot, serve).
// Redis errors degrade to cache misses.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func (c *RedisProfileCache) key(address string) string {
	return profileKeyPrefix + models.NormalizeAddress(address)
}

func (c *RedisProfileCache) Get(ctx context.Context, address string) (*models.SocialProfile, bool) {
	val, err := c.client.Get(ctx, c.key(address)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.LogWarn("Redis profile cache get failed", zap.String("address", address), zap.Error(err))
		}
		return nil, false
	}
	if val == nullProfile {
		return nil, true
	}

	var profile models.SocialProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		log.LogWarn("Corrupt profile cache entry", zap.String("address", address), zap.Error(err))
		return nil, false
	}
	return &profile, true
}

func (c *RedisProfileCache) Set(ctx context.Context, address string, profile *models.SocialProfile) {
	val := nullProfile
	if profile != nil {
		data, err := json.Marshal(profile)
		if err != nil {
			log.LogWarn("Failed to marshal profile for cache", zap.String("address", address), zap.Error(err))
			return
		}
		val = string(data)
	}
	if err := c.client.Set(ctx, c.key(address), val, c.ttl).Err(); err != nil {
		log.LogWarn("Redis profile cache set failed", zap.String("address", address), zap.Error(err))
	}
}

// Reset removes every profile key under the prefix.
func (c *RedisProfileCache) Reset(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, profileKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.LogWarn("Redis profile cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.LogWarn("Redis profile cache reset failed", zap.Error(err))
	}
}
