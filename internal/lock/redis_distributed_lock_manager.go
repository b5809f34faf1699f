package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisLockTTL   = 30 * time.Second
	defaultRedisRetryWait = 100 * time.Millisecond
	redisLockKeyPrefix    = "domainsync:lock:"
)

// releaseScript deletes the key only while it still carries our token, so an expired
// lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisDistributedLockManager struct {
	client redis.Cmdable
	ttl    time.Duration
	mu     sync.Mutex
	tokens map[int]string
}

func NewRedisDistributedLockManager(client redis.Cmdable, ttl time.Duration) *RedisDistributedLockManager {
	if ttl <= 0 {
		ttl = DefaultRedisLockTTL
	}
	return &RedisDistributedLockManager{
		client: client,
		ttl:    ttl,
		tokens: make(map[int]string),
	}
}

func (l *RedisDistributedLockManager) Acquire(ctx context.Context, lockID int) error {
	ticker := time.NewTicker(defaultRedisRetryWait)
	defer ticker.Stop()

	for {
		ok, err := l.TryAcquire(ctx, lockID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisDistributedLockManager) TryAcquire(ctx context.Context, lockID int) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(lockID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[lockID] = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisDistributedLockManager) Release(ctx context.Context, lockID int) error {
	l.mu.Lock()
	token, ok := l.tokens[lockID]
	delete(l.tokens, lockID)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("failed to release lock %d: %w", lockID, ErrLockNotHeld)
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{lockKey(lockID)}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("failed to release lock %d: %w", lockID, ErrLockNotHeld)
	}
	return nil
}

func lockKey(lockID int) string {
	return fmt.Sprintf("%s%d", redisLockKeyPrefix, lockID)
}
