package lock

import (
	"context"
	"errors"
)

var ErrLockNotHeld = errors.New("lock is not held by this manager")

// DistributedLockManager serializes work across instances sharing the same backend.
type DistributedLockManager interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context, lockID int) error

	// TryAcquire returns false without blocking when another holder owns the lock.
	TryAcquire(ctx context.Context, lockID int) (bool, error)

	Release(ctx context.Context, lockID int) error
}
