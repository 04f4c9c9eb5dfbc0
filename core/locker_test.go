package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryConnectionLocker_SecondAcquireFailsUntilUnlock(t *testing.T) {
	locker := NewMemoryConnectionLocker()

	handle, err := locker.Acquire(context.Background(), "conn_1", time.Minute)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "conn_1", time.Minute); err == nil {
		t.Fatalf("expected second acquire to fail while lock is held")
	}
	if _, err := locker.Acquire(context.Background(), "conn_2", time.Minute); err != nil {
		t.Fatalf("expected lock on a different connection to succeed: %v", err)
	}

	if err := handle.Unlock(context.Background()); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "conn_1", time.Minute); err != nil {
		t.Fatalf("expected acquire after unlock to succeed: %v", err)
	}
}

func TestMemoryConnectionLocker_ExpiredLockIsReacquirable(t *testing.T) {
	locker := NewMemoryConnectionLocker()
	current := time.Now().UTC()
	locker.nowFn = func() time.Time { return current }

	if _, err := locker.Acquire(context.Background(), "conn_1", time.Second); err != nil {
		t.Fatalf("acquire lock: %v", err)
	}

	current = current.Add(2 * time.Second)
	if _, err := locker.Acquire(context.Background(), "conn_1", time.Second); err != nil {
		t.Fatalf("expected expired lock to be reacquirable: %v", err)
	}
}

func TestMemoryConnectionLocker_UnlockIsIdempotent(t *testing.T) {
	locker := NewMemoryConnectionLocker()

	handle, err := locker.Acquire(context.Background(), "conn_1", time.Minute)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if err := handle.Unlock(context.Background()); err != nil {
		t.Fatalf("first unlock: %v", err)
	}

	if _, err := locker.Acquire(context.Background(), "conn_1", time.Minute); err != nil {
		t.Fatalf("reacquire after unlock: %v", err)
	}
	if err := handle.Unlock(context.Background()); err != nil {
		t.Fatalf("repeat unlock: %v", err)
	}
	// The stale handle must not release the lock now held by another caller.
	if _, err := locker.Acquire(context.Background(), "conn_1", time.Minute); err == nil {
		t.Fatalf("expected live lock to survive a stale handle unlock")
	}
}

func TestMemoryConnectionLocker_BlankConnectionIDRejected(t *testing.T) {
	locker := NewMemoryConnectionLocker()
	if _, err := locker.Acquire(context.Background(), "  ", time.Minute); err == nil {
		t.Fatalf("expected blank connection id to be rejected")
	}
}
