package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/merchantpay/internal/domain"
)

// Locker is an in-process implementation of domain.Locker for paper mode and
// tests. The TTL is ignored; locks live until released.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

// Acquire takes the lock for key, or returns domain.ErrLockHeld when it is
// already taken. The returned unlock function is safe to call more than once.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = struct{}{}

	released := false
	unlock := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(l.held, key)
	}
	return unlock, nil
}

var _ domain.Locker = (*Locker)(nil)
