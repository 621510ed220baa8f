package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/productsync/internal/domain/shared"
)

// lockSlot is a one-token semaphore shared by every waiter on a key
type lockSlot struct {
	token chan struct{}
	refs  int
}

// InMemoryLocker implements shared.Locker with process-local semaphores.
// This is suitable for single-instance deployments and testing.
type InMemoryLocker struct {
	mu          sync.Mutex
	slots       map[string]*lockSlot
	waitTimeout time.Duration
}

// NewInMemoryLocker creates a new in-memory locker
func NewInMemoryLocker(cfg shared.LockConfig) *InMemoryLocker {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = shared.DefaultLockConfig().WaitTimeout
	}
	return &InMemoryLocker{
		slots:       make(map[string]*lockSlot),
		waitTimeout: cfg.WaitTimeout,
	}
}

// Acquire locks key, waiting at most the configured wait timeout
func (l *InMemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	slot := l.ref(key)

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key)
		return nil, fmt.Errorf("%w: %s", shared.ErrLockNotAcquired, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.token
			l.unref(key)
		})
	}, nil
}

// Close is a no-op; held locks stay valid until released
func (l *InMemoryLocker) Close() error {
	return nil
}

// Held returns the number of keys that are locked or awaited
func (l *InMemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *InMemoryLocker) ref(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *InMemoryLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs <= 0 {
		delete(l.slots, key)
	}
}

// Ensure InMemoryLocker implements Locker
var _ shared.Locker = (*InMemoryLocker)(nil)
