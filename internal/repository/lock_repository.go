package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "portal:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository guards in-flight actions with Redis SET NX.
type LockRepository struct {
	client *redis.Client
}

// NewLockRepository constructs a Redis lock store.
func NewLockRepository(client *redis.Client) *LockRepository {
	return &LockRepository{client: client}
}

// Acquire takes the lock for ttl. The returned token is required to release
// it; ok is false when someone else holds the lock.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lock if token still owns it.
func (r *LockRepository) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

// MemoryLockRepository is the single-process fallback for LockRepository.
type MemoryLockRepository struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]memoryLock
}

type memoryLock struct {
	token   string
	expires time.Time
}

// NewMemoryLockRepository constructs an in-process lock store.
func NewMemoryLockRepository() *MemoryLockRepository {
	return &MemoryLockRepository{now: time.Now, locks: make(map[string]memoryLock)}
}

// Acquire takes the lock for ttl unless an unexpired holder exists.
func (r *MemoryLockRepository) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if held, ok := r.locks[key]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	r.locks[key] = memoryLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lock if token still owns it.
func (r *MemoryLockRepository) Release(_ context.Context, key, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.locks[key]; ok && held.token == token {
		delete(r.locks, key)
	}
	return nil
}
