// Package cache is a time-boxed key/value store for fetched payloads.
//
// Expiry is evaluated only when an entry is read: an expired entry is dropped by the Get that
// observes it. Nothing sweeps the store in the background, so unread expired entries stay
// until they are read, invalidated or cleared. Every mutation replaces the backing table
// wholesale and notifies subscribers with the new snapshot.
package cache

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/reactive"
)

// DefaultTTL applies to entries stored without an explicit TTL.
const DefaultTTL = 30 * time.Second

// Entry is a stored value with its insertion stamp.
type Entry struct {
	Key        string
	Value      any
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Snapshot is an immutable view of the table, ordered by first insertion.
type Snapshot struct {
	keys    []string
	entries map[string]Entry
}

// Len returns the number of stored entries, expired ones included.
func (s Snapshot) Len() int { return len(s.keys) }

// Keys returns the stored keys in insertion order.
func (s Snapshot) Keys() []string { return append([]string(nil), s.keys...) }

// Lookup returns the raw entry without evaluating expiry.
func (s Snapshot) Lookup(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

func (s Snapshot) without(keep func(key string) bool) Snapshot {
	next := Snapshot{
		keys:    make([]string, 0, len(s.keys)),
		entries: make(map[string]Entry, len(s.entries)),
	}
	for _, k := range s.keys {
		if keep(k) {
			next.keys = append(next.keys, k)
			next.entries[k] = s.entries[k]
		}
	}
	return next
}

// Option customises a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger for debug tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	state  *reactive.Value[Snapshot]
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		state:  reactive.NewValue(Snapshot{}),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTL returns the TTL applied by Set.
func (c *Cache) DefaultTTL() time.Duration { return c.ttl }

// Get returns the value stored under key if it has not expired. An expired entry is removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.Get()
	entry, ok := current.entries[key]
	if !ok {
		return nil, false
	}
	if entry.Expired(c.now()) {
		c.logger.Debug("cache entry expired", zap.String("key", key))
		c.state.Set(current.without(func(k string) bool { return k != key }))
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key, overwriting any previous entry. A non-positive ttl
// falls back to the default.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.Get()
	next := Snapshot{
		keys:    append(make([]string, 0, len(current.keys)+1), current.keys...),
		entries: make(map[string]Entry, len(current.entries)+1),
	}
	for k, e := range current.entries {
		next.entries[k] = e
	}
	if _, exists := next.entries[key]; !exists {
		next.keys = append(next.keys, key)
	}
	next.entries[key] = Entry{Key: key, Value: value, InsertedAt: c.now(), TTL: ttl}
	c.state.Set(next)
}

// Invalidate removes key; absent keys are ignored.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Set(c.state.Get().without(func(k string) bool { return k != key }))
}

// InvalidatePrefix removes every key starting with prefix, keeping the order of the rest.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Set(c.state.Get().without(func(k string) bool { return !strings.HasPrefix(k, prefix) }))
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Set(Snapshot{})
}

// Snapshot returns the current table without evaluating expiry.
func (c *Cache) Snapshot() Snapshot {
	return c.state.Get()
}

// Subscribe registers h to be called with every new table. Handlers run while the cache is
// locked and must not call back into it.
func (c *Cache) Subscribe(h func(Snapshot)) (unsubscribe func()) {
	return c.state.Subscribe(h)
}

// GetAs returns the value under key asserted to T. A stored value of another type reads as a miss.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
