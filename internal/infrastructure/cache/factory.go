package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/productsync/internal/domain/shared"
	"github.com/erp/productsync/internal/infrastructure/config"
)

// Lock backends accepted by config lock.backend
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// LockerFactory creates lockers based on configuration
type LockerFactory struct {
	lockConfig            config.LockConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory locker when Redis is unavailable.
// Default is false.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(lockCfg config.LockConfig, redisCfg config.RedisConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		lockConfig:  lockCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// lockSettings converts the configured durations, keeping defaults for unset values
func (f *LockerFactory) lockSettings() shared.LockConfig {
	settings := shared.DefaultLockConfig()
	if f.lockConfig.TTL > 0 {
		settings.TTL = f.lockConfig.TTL
	}
	if f.lockConfig.WaitTimeout > 0 {
		settings.WaitTimeout = f.lockConfig.WaitTimeout
	}
	return settings
}

// CreateRedisLocker creates a Redis-based locker
func (f *LockerFactory) CreateRedisLocker() (shared.Locker, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	locker, err := NewRedisLocker(redisCfg, f.lockSettings(), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis locker: %w", err)
	}

	return locker, nil
}

// CreateInMemoryLocker creates an in-memory locker.
// WARNING: In-memory locks do not exclude other process instances.
func (f *LockerFactory) CreateInMemoryLocker() shared.Locker {
	return NewInMemoryLocker(f.lockSettings())
}

// CreateLocker creates the locker selected by lock.backend
func (f *LockerFactory) CreateLocker() (shared.Locker, error) {
	switch f.lockConfig.Backend {
	case "", LockBackendMemory:
		f.logger.Info("using in-memory product locks")
		return f.CreateInMemoryLocker(), nil
	case LockBackendRedis:
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", f.lockConfig.Backend)
	}

	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis product locks")
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory product locks. "+
		"Concurrent instances may interleave changes to the same product.",
		zap.Error(err),
	)
	return f.CreateInMemoryLocker(), nil
}
