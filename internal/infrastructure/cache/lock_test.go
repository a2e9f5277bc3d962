package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/schoolerp/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryLock_AcquireRelease(t *testing.T) {
	lock := NewInMemoryLock()
	ctx := context.Background()

	token, ok, err := lock.Acquire(ctx, "schoolpay:sync:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.Acquire(ctx, "schoolpay:sync:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	_, ok, err = lock.Acquire(ctx, "schoolpay:sync:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other keys are independent")

	require.NoError(t, lock.Release(ctx, "schoolpay:sync:a", token))
	_, ok, err = lock.Acquire(ctx, "schoolpay:sync:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryLock_ForeignTokenDoesNotRelease(t *testing.T) {
	lock := NewInMemoryLock()
	ctx := context.Background()

	_, ok, _ := lock.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)
	require.NoError(t, lock.Release(ctx, "k", "not-the-owner"))

	_, ok, _ = lock.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestInMemoryLock_ExpiredHolderIsReplaced(t *testing.T) {
	lock := NewInMemoryLock()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }
	ctx := context.Background()

	stale, ok, _ := lock.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	fresh, ok, _ := lock.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)
	assert.NotEqual(t, stale, fresh)

	// The stale holder finishing late must not free the new holder's lock
	require.NoError(t, lock.Release(ctx, "k", stale))
	_, ok, _ = lock.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestInMemoryLock_Concurrent(t *testing.T) {
	lock := NewInMemoryLock()
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := lock.Acquire(ctx, "tenant", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestLockFactory_RedisDisabled(t *testing.T) {
	f := NewLockFactory(config.RedisConfig{Enabled: false})
	lock, err := f.CreateLock()
	require.NoError(t, err)
	assert.IsType(t, &InMemoryLock{}, lock)
}

func TestLockFactory_FallbackWhenUnreachable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := NewLockFactory(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, WithLogger(zap.New(core)))

	lock, err := f.CreateLock()
	require.NoError(t, err)
	assert.IsType(t, &InMemoryLock{}, lock)
	assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
}

func TestLockFactory_NoFallback(t *testing.T) {
	f := NewLockFactory(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))

	lock, err := f.CreateLock()
	assert.Error(t, err)
	assert.Nil(t, lock)
}
