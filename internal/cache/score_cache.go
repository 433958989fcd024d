package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"home-services-leads/internal/config"
	"home-services-leads/internal/logging"
	"home-services-leads/internal/models"
	"home-services-leads/internal/scoring"
)

// ScoreCache caches computed ScoreResults in redis, keyed by
// (property, trade, signal set version). The version in the key is the
// invalidation mechanism: a changed signal set simply misses.
type ScoreCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects the score cache, or returns nil when disabled. A nil
// *ScoreCache is valid; all methods degrade to misses.
func New(cfg config.RedisConfig) (*ScoreCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Addr, err)
	}
	return &ScoreCache{client: client, prefix: cfg.KeyPrefix, ttl: cfg.CacheTTL()}, nil
}

// NewWithClient wraps an existing client (used by tests with miniredis)
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *ScoreCache {
	return &ScoreCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ScoreCache) key(propertyID string, trade models.Trade, version string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, propertyID, trade, version)
}

// Get returns a cached result, or nil on miss. Cache errors degrade to
// misses; the caller always recomputes.
func (c *ScoreCache) Get(ctx context.Context, propertyID string, trade models.Trade, version string) *scoring.ScoreResult {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, c.key(propertyID, trade, version)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		logging.L().Warnf("ScoreCache: get failed: %v", err)
		return nil
	}
	var res scoring.ScoreResult
	if err := json.Unmarshal(data, &res); err != nil {
		logging.L().Warnf("ScoreCache: corrupt entry for %s/%s: %v", propertyID, trade, err)
		return nil
	}
	return &res
}

// Set stores a result under its version key
func (c *ScoreCache) Set(ctx context.Context, res *scoring.ScoreResult) {
	if c == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		logging.L().Warnf("ScoreCache: marshal failed: %v", err)
		return
	}
	key := c.key(res.PropertyID, res.Trade, res.SignalSetVersion)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.L().Warnf("ScoreCache: set failed: %v", err)
	}
}

// InvalidateProperty drops every cached entry for a property, across
// trades and versions. Used when a score is superseded out-of-band.
func (c *ScoreCache) InvalidateProperty(ctx context.Context, propertyID string) int {
	if c == nil {
		return 0
	}
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, propertyID)
	var deleted int
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err == nil {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logging.L().Warnf("ScoreCache: invalidate scan failed: %v", err)
	}
	return deleted
}

func (c *ScoreCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
