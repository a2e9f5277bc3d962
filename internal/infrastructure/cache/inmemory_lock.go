package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLock implements shared.DistributedLock inside one process.
// Expired entries are replaced lazily on the next Acquire.
type InMemoryLock struct {
	mu      sync.Mutex
	entries map[string]lockEntry
	now     func() time.Time
}

// NewInMemoryLock creates a new in-process lock
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{
		entries: make(map[string]lockEntry),
		now:     time.Now,
	}
}

// Acquire takes the lock if it is free or its holder's TTL has passed
func (l *InMemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release frees the lock if token still owns it
func (l *InMemoryLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.token == token {
		delete(l.entries, key)
	}
	return nil
}

// Close drops all held locks
func (l *InMemoryLock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]lockEntry)
	return nil
}

var _ shared.DistributedLock = (*InMemoryLock)(nil)
