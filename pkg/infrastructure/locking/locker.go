package locking

import (
	"context"
	"sync"
	"time"

	"github.com/vsinha/mes/pkg/domain/errs"
)

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive locks by key. Obtain waits until the lock is free or
// ctx ends, in which case it returns a Conflict.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// LocalLocker serializes callers inside one process. The ttl is ignored; locks
// live until released.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return &localLock{owner: l, key: key}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, errs.Conflict("ObtainLock", "lock %s not obtained: %v", key, ctx.Err())
		}
	}
}

type localLock struct {
	owner *LocalLocker
	key   string
	once  sync.Once
}

func (l *localLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		defer l.owner.mu.Unlock()
		if ch, ok := l.owner.held[l.key]; ok {
			delete(l.owner.held, l.key)
			close(ch)
		}
	})
	return nil
}
