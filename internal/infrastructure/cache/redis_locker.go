package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/productsync/internal/domain/shared"
)

const defaultLockKeyPrefix = "productsync:lock:"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the key's TTL only while it still holds our token
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisLocker implements shared.Locker using SET NX with a TTL.
// This is suitable for distributed deployments where multiple instances
// share the same products. A held lock is renewed every TTL/3 until it is
// released, so the TTL only bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	cfg       shared.LockConfig
	logger    *zap.Logger
}

// NewRedisLocker connects to Redis and creates a locker
func NewRedisLocker(redisCfg RedisConfig, cfg shared.LockConfig, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, "", cfg, logger), nil
}

// NewRedisLockerWithClient creates a locker with an existing Redis client
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string, cfg shared.LockConfig, logger *zap.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	defaults := shared.DefaultLockConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaults.WaitTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: keyPrefix,
		cfg:       cfg,
		logger:    logger,
	}
}

// Acquire polls SET NX until the key is free, ctx is done or the wait timeout elapses
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaseFunc(redisKey, token), nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", shared.ErrLockNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaseFunc(redisKey, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(redisKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release must succeed even when the request context is already cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("failed to release lock",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			}
		})
	}
}

// keepAlive extends the lock TTL until stop is closed or the token is gone
func (l *RedisLocker) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.cfg.TTL / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), min(interval, 2*time.Second))
		renewed, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.cfg.TTL.Milliseconds()).Int()
		cancel()
		if err != nil {
			l.logger.Warn("failed to renew lock",
				zap.String("key", redisKey),
				zap.Error(err),
			)
			continue
		}
		if renewed == 0 {
			l.logger.Warn("lock expired before release", zap.String("key", redisKey))
			return
		}
	}
}

// Close closes the Redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisLocker) GetClient() *redis.Client {
	return l.client
}

// Ensure RedisLocker implements Locker
var _ shared.Locker = (*RedisLocker)(nil)
