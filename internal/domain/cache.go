package domain

import (
	"context"
	"time"
)

// ActivityCache is a read-through cache for activity records.
type ActivityCache interface {
	Set(ctx context.Context, activity Activity) error
	Get(ctx context.Context, id uint64) (Activity, error)
	Invalidate(ctx context.Context, id uint64) error
}

// SignalBus provides pub/sub fan-out of serialized ledger events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager provides distributed mutual exclusion. The returned unlock
// function is safe to call multiple times.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter answers whether a request under a key is within its limit for
// the window. Allowed requests are counted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
