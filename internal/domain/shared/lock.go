package shared

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when a lock could not be obtained before the wait timeout
var ErrLockNotAcquired = errors.New("lock: not acquired")

// Locker provides mutual exclusion over named keys.
// Implementations may be process-local or shared between instances.
type Locker interface {
	// Acquire blocks until the key is locked, ctx is done or the wait timeout elapses.
	// The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)

	// Close releases resources held by the locker
	Close() error
}

// LockConfig holds configuration for lock acquisition
type LockConfig struct {
	// TTL bounds how long an abandoned lock is held (shared lockers only)
	TTL time.Duration
	// WaitTimeout bounds how long Acquire waits for a held lock
	WaitTimeout time.Duration
	// RetryInterval is the polling interval of shared lockers
	RetryInterval time.Duration
}

// DefaultLockConfig returns the default lock configuration
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:           60 * time.Second,
		WaitTimeout:   10 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// ProductLockKey returns the lock key of a product
func ProductLockKey(id string) string {
	return "product:" + id
}

// ErpProductLockKey returns the lock key of an ERP product.
// Deletes of a mirror and imports of the same ERP product hold it.
func ErpProductLockKey(erpID string) string {
	return "erp:" + erpID
}

// ImportLockKey is the lock key serializing import runs
const ImportLockKey = "import:erp"
