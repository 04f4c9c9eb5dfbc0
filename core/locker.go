package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultPublishLockTTL = 30 * time.Second

type LockHandle interface {
	Unlock(ctx context.Context) error
}

// ConnectionLocker serializes the token refresh read-modify-write for a
// single connection so concurrent publishes cannot clobber each other's
// persisted credentials.
type ConnectionLocker interface {
	Acquire(ctx context.Context, connectionID string, ttl time.Duration) (LockHandle, error)
}

type MemoryConnectionLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryConnectionLocker() *MemoryConnectionLocker {
	return &MemoryConnectionLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryConnectionLocker) Acquire(_ context.Context, connectionID string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: connection locker is not configured")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("core: connection id is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultPublishLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[connectionID]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: refresh lock already held for connection %q", connectionID)
	}
	l.locks[connectionID] = now.Add(ttl)
	return &memoryLockHandle{locker: l, connectionID: connectionID}, nil
}

type memoryLockHandle struct {
	locker       *MemoryConnectionLocker
	connectionID string
	once         sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.connectionID)
		h.locker.mu.Unlock()
	})
	return nil
}

var _ ConnectionLocker = (*MemoryConnectionLocker)(nil)
