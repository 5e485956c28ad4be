package cache

import (
	"context"
	"time"
)

// Store is the key-value contract shared by the value cache, the page cache and the
// HTTP rate limiter. Values are opaque bytes; integers are kept as decimal text.
type Store interface {
	// Set writes value under key. A positive ttl behaves like SETEX, otherwise the key
	// does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete removes keys, ignoring missing ones.
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically increments the integer stored at key, starting from 0.
	Incr(ctx context.Context, key string) (int64, error)
	// IncrementWithTTL increments key and starts an expiry window on the first increment.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// RPush appends values to the list at key and returns the new length.
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	// LRange returns list elements between start and stop inclusive. Negative indexes
	// count from the end, -1 being the last element.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	// Expire sets a time-to-live on an existing key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// FlushAll removes every key.
	FlushAll(ctx context.Context) error
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// KeyCounter is implemented by stores that can report how many keys they hold. Health
// probes use it for their details.
type KeyCounter interface {
	KeyCount(ctx context.Context) (int64, error)
}

var (
	_ KeyCounter = (*RedisClient)(nil)
	_ KeyCounter = (*DatabaseStore)(nil)
	_ KeyCounter = (*MemoryStore)(nil)
)

// rangeBounds converts Redis-style inclusive indexes into slice bounds for a list of
// length n. ok is false when the range selects nothing.
func rangeBounds(n, start, stop int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}
