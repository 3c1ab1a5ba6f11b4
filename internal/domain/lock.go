package domain

import (
	"context"
	"time"
)

// Locker serializes settlements against the same listing. Acquire returns
// ErrLockHeld when the key is already locked; the returned unlock function
// releases the lock and is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
