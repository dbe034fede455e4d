package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }
func newFakeClock() *fakeClock               { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }
func newTestCache(clock *fakeClock) *Cache   { return New(WithClock(clock.Now)) }

func TestGetReturnsValueWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetWithTTL("stats", 42, 5*time.Second)
	clock.Advance(5 * time.Second)

	v, ok := c.Get("stats")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetDropsExpiredEntry(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetWithTTL("stats", 42, 5*time.Second)
	clock.Advance(5*time.Second + time.Millisecond)

	_, ok := c.Get("stats")
	assert.False(t, ok)
	_, present := c.Snapshot().Lookup("stats")
	assert.False(t, present, "expired entry must be removed by the read")
}

func TestSetUsesDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)
	require.Equal(t, DefaultTTL, c.DefaultTTL())

	c.Set("k", "v")
	clock.Advance(DefaultTTL)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestNonPositiveTTLFallsBackToDefault(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithDefaultTTL(time.Minute))

	c.SetWithTTL("k", "v", 0)
	entry, ok := c.Snapshot().Lookup("k")
	require.True(t, ok)
	assert.Equal(t, time.Minute, entry.TTL)
}

func TestExpiredEntriesAreNotSweptWithoutRead(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetWithTTL("a", 1, time.Second)
	c.SetWithTTL("b", 2, time.Hour)
	clock.Advance(time.Minute)

	_, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, c.Snapshot().Keys())
}

func TestSetOverwritesAndRestampsInPlace(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetWithTTL("a", 1, time.Second)
	c.Set("b", 2)
	clock.Advance(900 * time.Millisecond)
	c.SetWithTTL("a", 3, time.Second)
	clock.Advance(900 * time.Millisecond)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "b"}, c.Snapshot().Keys())
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	c.Invalidate("missing")

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestInvalidatePrefixKeepsOthersInOrder(t *testing.T) {
	c := New()
	c.Set("users:1", "alice")
	c.Set("ticket:1", "t1")
	c.Set("stats", 9)
	c.Set("ticket:2", "t2")
	c.Set("tickets", "list")

	c.InvalidatePrefix("ticket:")

	assert.Equal(t, []string{"users:1", "stats", "tickets"}, c.Snapshot().Keys())
	for key, want := range map[string]any{"users:1": "alice", "stats": 9, "tickets": "list"} {
		got, ok := c.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Snapshot().Len())
}

func TestEveryMutationPublishesNewSnapshot(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock)

	var lens []int
	unsubscribe := c.Subscribe(func(s Snapshot) { lens = append(lens, s.Len()) })
	defer unsubscribe()

	before := c.Snapshot()
	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Millisecond)
	clock.Advance(time.Second)
	_, _ = c.Get("b")
	c.InvalidatePrefix("a")
	c.Clear()

	assert.Equal(t, []int{1, 2, 1, 0, 0}, lens)
	assert.Equal(t, 0, before.Len(), "earlier snapshots are never mutated")
}

func TestGetAs(t *testing.T) {
	c := New()
	c.Set("n", 7)

	n, ok := GetAs[int](c, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = GetAs[string](c, "n")
	assert.False(t, ok)
	_, ok = GetAs[int](c, "missing")
	assert.False(t, ok)
}
