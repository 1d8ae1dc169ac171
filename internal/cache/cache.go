package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache mirrors job status and completed analysis results in Redis so
// identical resubmissions can be served without another multi-minute
// gateway round-trip. The in-memory job registry stays the source of
// truth; everything here is best-effort. Implementations must be safe
// for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error)
	SetResult(ctx context.Context, key, content string, ttl time.Duration) error
	GetResult(ctx context.Context, key string) (string, bool, error)
	Close() error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error {
	return c.client.Set(ctx, JobStatusKey(jobID), status, ttl).Err()
}

func (c *RedisCache) GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	val, err := c.client.Get(ctx, JobStatusKey(jobID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetResult(ctx context.Context, key, content string, ttl time.Duration) error {
	return c.client.Set(ctx, key, content, ttl).Err()
}

func (c *RedisCache) GetResult(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache is used when Redis is not configured; every read misses and
// every write succeeds silently.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (NoopCache) Ping(context.Context) error { return nil }
func (NoopCache) SetJobStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (NoopCache) GetJobStatus(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (NoopCache) SetResult(context.Context, string, string, time.Duration) error { return nil }
func (NoopCache) GetResult(context.Context, string) (string, bool, error) {
	return "", false, nil
}
func (NoopCache) Close() error { return nil }

// Compile-time interface checks.
var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*NoopCache)(nil)
)
