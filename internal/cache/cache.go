package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)

	// AcquireWorkerLock takes or renews the single-instance worker lock.
	// Returns false when another owner holds it. The lock expires after ttl,
	// so a crashed worker releases it without intervention. The lock is
	// advisory only; the store's conditional claim update remains the
	// correctness guard against double-claiming.
	AcquireWorkerLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseWorkerLock(ctx context.Context, owner string) error
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

func (c *RedisCache) Close() error {
	return c.client.Close()
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

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCache) AcquireWorkerLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, WorkerLockKey(), owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := c.client.Get(ctx, WorkerLockKey()).Result()
	if err == redis.Nil {
		// lock expired between SETNX and GET; next tick retries
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != owner {
		return false, nil
	}
	// Renew our own lock.
	return true, c.client.Expire(ctx, WorkerLockKey(), ttl).Err()
}

func (c *RedisCache) ReleaseWorkerLock(ctx context.Context, owner string) error {
	holder, err := c.client.Get(ctx, WorkerLockKey()).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if holder != owner {
		return nil
	}
	return c.client.Del(ctx, WorkerLockKey()).Err()
}
