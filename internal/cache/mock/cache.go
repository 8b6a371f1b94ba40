// Package mock provides an in-memory Cache for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/gfmartins/crimecluster/internal/cache"
	"github.com/google/uuid"
)

type Cache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	counters map[string]int64
	lockHeld string

	// Err, when set, is returned by every method to simulate Redis being down.
	Err error
}

var _ cache.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{
		statuses: make(map[uuid.UUID]string),
		counters: make(map[string]int64),
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.Err }

func (c *Cache) SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.statuses[jobID] = status
	return nil
}

func (c *Cache) GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", false, c.Err
	}
	status, ok := c.statuses[jobID]
	return status, ok, nil
}

func (c *Cache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	c.counters[key]++
	return c.counters[key], nil
}

func (c *Cache) AcquireWorkerLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	if c.lockHeld == "" || c.lockHeld == owner {
		c.lockHeld = owner
		return true, nil
	}
	return false, nil
}

func (c *Cache) ReleaseWorkerLock(ctx context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if c.lockHeld == owner {
		c.lockHeld = ""
	}
	return nil
}

// Status returns the cached status for a job, for assertions.
func (c *Cache) Status(jobID uuid.UUID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok
}
