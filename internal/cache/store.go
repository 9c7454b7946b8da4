package cache

import (
	"context"
	"time"
)

// Store maps a fingerprint key to a completed interaction result. Entries
// are immutable once written and disappear only through TTL expiry or
// capacity eviction. The cache is a latency optimization, never a
// correctness-bearing store: callers must treat every error as a miss.
//
// Implemented by the memory store (dev, capacity-bounded) and Redis (prod).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
