package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time // zero means no expiration
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// ErrWrongType mirrors Redis' WRONGTYPE reply for scalar commands on lists and vice versa.
var ErrWrongType = errors.New("cache: operation against a key holding the wrong kind of value")

// MemoryStore is a process-local Store guarded by a single RWMutex. Expired keys are
// treated as misses and removed lazily or by PurgeExpired.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{items: make(map[string]memoryEntry), now: now}
}

// liveLocked returns the entry for key, dropping it when expired. Callers hold the write lock.
func (m *MemoryStore) liveLocked(key string) (memoryEntry, bool) {
	e, ok := m.items[key]
	if !ok {
		return e, false
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Ping always succeeds; the store lives in process memory.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Set stores a copy of value, expiring it after ttl when ttl is positive.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.items[key] = memoryEntry{value: append([]byte{}, value...), expiresAt: exp}
	return nil
}

// Get returns a copy of the value under key. Lists yield ErrWrongType.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	if e.isList {
		return nil, false, ErrWrongType
	}
	return append([]byte{}, e.value...), true, nil
}

// Delete removes scalar and list keys, ignoring missing ones.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

// Incr increments the integer under key, keeping any existing deadline.
func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, err := m.incrLocked(key, 0)
	return n, err
}

// IncrementWithTTL increments key and starts a window of the given length when the
// counter reaches 1. It returns the count and the time left in the window.
func (m *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrLocked(key, window)
}

func (m *MemoryStore) incrLocked(key string, window time.Duration) (int64, time.Duration, error) {
	e, ok := m.liveLocked(key)
	if ok && e.isList {
		return 0, 0, ErrWrongType
	}

	var current int64
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: key %q", ErrNotInteger, key)
		}
		current = n
	}
	current++

	if current == 1 && window > 0 {
		e.expiresAt = m.now().Add(window)
	}
	e.value = []byte(strconv.FormatInt(current, 10))
	m.items[key] = e

	if e.expiresAt.IsZero() {
		return current, window, nil
	}
	return current, e.expiresAt.Sub(m.now()), nil
}

// RPush appends copies of values to the list at key and returns the new length.
func (m *MemoryStore) RPush(_ context.Context, key string, values ...[]byte) (int64, error) {
	if len(values) == 0 {
		return 0, errors.New("cache: RPUSH requires at least one value")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if ok && !e.isList {
		return 0, ErrWrongType
	}
	e.isList = true
	for _, v := range values {
		e.list = append(e.list, append([]byte{}, v...))
	}
	m.items[key] = e
	return int64(len(e.list)), nil
}

// LRange returns copies of the list elements between start and stop inclusive.
func (m *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return [][]byte{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}
	lo, hi, inRange := rangeBounds(int64(len(e.list)), start, stop)
	if !inRange {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo)
	for _, v := range e.list[lo:hi] {
		out = append(out, append([]byte{}, v...))
	}
	return out, nil
}

// Expire sets a deadline on a live key. A non-positive ttl deletes the key at once.
func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		delete(m.items, key)
		return true, nil
	}
	e.expiresAt = m.now().Add(ttl)
	m.items[key] = e
	return true, nil
}

// FlushAll drops every key.
func (m *MemoryStore) FlushAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryEntry)
	return nil
}

// PurgeExpired removes every expired key and reports how many were dropped.
func (m *MemoryStore) PurgeExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for key, e := range m.items {
		if e.expired(now) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

// KeyCount reports the number of live keys.
func (m *MemoryStore) KeyCount(context.Context) (int64, error) {
	return int64(m.Len()), nil
}

// Len counts live keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	count := 0
	for _, e := range m.items {
		if !e.expired(now) {
			count++
		}
	}
	return count
}
