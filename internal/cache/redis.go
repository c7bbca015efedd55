package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisClient is the subset of go-redis client methods used by RedisCache.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

type Config struct {
	// Prefix namespaces every key as "<prefix>:<key>".
	Prefix     string
	DefaultTTL time.Duration
}

type RedisCache struct {
	logger *zap.Logger
	client RedisClient
	cfg    Config
}

// NewRedisCache connects to the redis instance at redisURL and verifies the
// connection with PING.
func NewRedisCache(ctx context.Context, logger *zap.Logger, redisURL string, cfg Config) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Connected to redis cache", zap.String("address", opts.Addr), zap.String("prefix", cfg.Prefix))
	return NewRedisCacheWithClient(logger, client, cfg), nil
}

func NewRedisCacheWithClient(logger *zap.Logger, client RedisClient, cfg Config) *RedisCache {
	return &RedisCache{
		logger: logger,
		client: client,
		cfg:    cfg,
	}
}

// Get returns ErrCacheMiss when the key does not exist.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.prefixed(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

// Set stores value under key. A zero ttl uses the configured default; if that
// is zero as well the key never expires.
func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.cfg.DefaultTTL
	}
	return r.client.Set(ctx, r.prefixed(key), value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefixed(key)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) prefixed(key string) string {
	prefix := strings.TrimSuffix(r.cfg.Prefix, ":")
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

// Noop is used when no redis instance is configured; every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) {
	return "", ErrCacheMiss
}

func (Noop) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (Noop) Delete(context.Context, ...string) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
