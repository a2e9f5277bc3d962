package cache

import (
	"fmt"

	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LockFactory creates distributed locks based on configuration
type LockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockFactoryOption is a functional option for configuring the factory
type LockFactoryOption func(*LockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockFactoryOption {
	return func(f *LockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to an
// in-process lock. Default is true.
func WithInMemoryFallback(allow bool) LockFactoryOption {
	return func(f *LockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockFactory creates a new factory
func NewLockFactory(cfg config.RedisConfig, opts ...LockFactoryOption) *LockFactory {
	f := &LockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLock connects a Redis-backed lock
func (f *LockFactory) CreateRedisLock() (*RedisLock, error) {
	lock, err := NewRedisLock(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis lock: %w", err)
	}
	return lock, nil
}

// CreateLock returns a Redis lock when Redis is enabled and reachable,
// otherwise an in-process lock if fallback is allowed.
func (f *LockFactory) CreateLock() (shared.DistributedLock, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory sync lock")
		return NewInMemoryLock(), nil
	}

	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis sync lock", zap.String("addr", f.redisConfig.Addr()))
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sync lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync lock. "+
		"Concurrent syncs on other instances will not be excluded.",
		zap.Error(err),
	)
	return NewInMemoryLock(), nil
}
