package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalLockManager only serializes callers inside one process. It backs the memory
// storage driver where there is no shared backend to coordinate through.
type LocalLockManager struct {
	mu   sync.Mutex
	held map[int]bool
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{held: make(map[int]bool)}
}

func (l *LocalLockManager) Acquire(ctx context.Context, lockID int) error {
	for {
		ok, _ := l.TryAcquire(ctx, lockID)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (l *LocalLockManager) TryAcquire(_ context.Context, lockID int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[lockID] {
		return false, nil
	}
	l.held[lockID] = true
	return true, nil
}

func (l *LocalLockManager) Release(_ context.Context, lockID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held[lockID] {
		return fmt.Errorf("failed to release lock %d: %w", lockID, ErrLockNotHeld)
	}
	delete(l.held, lockID)
	return nil
}
