package shared

import (
	"context"
	"time"
)

// DistributedLock guards a named critical section across processes.
type DistributedLock interface {
	// Acquire tries to take the lock once without waiting.
	// It returns a release token and true when the lock was taken,
	// or an empty token and false when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Release frees the lock if token still owns it.
	Release(ctx context.Context, key, token string) error

	// Close releases resources held by the lock backend
	Close() error
}
