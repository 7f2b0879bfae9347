package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMap(ttl time.Duration) (*TTLMap[string, int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewTTLMap[string, int](ttl, 0)
	m.now = clock.Now
	return m, clock
}

func TestTTLMapExpiry(t *testing.T) {
	m, clock := newTestMap(time.Minute)
	m.Set("a", 1, 0)
	m.Set("forever", 2, 0)
	m.defaultTTL = 0
	m.Set("forever", 2, 0)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("expected live entry, got %d %v", v, ok)
	}
	clock.Advance(time.Minute)
	if _, ok := m.Get("a"); ok {
		t.Fatal("expected entry to expire at its deadline")
	}
	if _, ok := m.Get("forever"); !ok {
		t.Fatal("entry without ttl must not expire")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", m.Len())
	}
	s := m.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Evictions != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestTTLMapSlidingExpiry(t *testing.T) {
	m, clock := newTestMap(time.Minute)
	m.WithSliding()
	m.Set("s", 1, 0)
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Second)
		if _, ok := m.Get("s"); !ok {
			t.Fatalf("sliding entry expired after access %d", i)
		}
	}
	clock.Advance(61 * time.Second)
	if _, ok := m.Get("s"); ok {
		t.Fatal("expected idle entry to expire")
	}
}

func TestTTLMapCleanupRunsEvictHook(t *testing.T) {
	m, clock := newTestMap(time.Second)
	var evicted []string
	m.WithEvictHook(func(k string, _ int) { evicted = append(evicted, k) })
	m.Set("a", 1, 0)
	m.Set("b", 2, time.Hour)

	if v, ok := m.Delete("b"); !ok || v != 2 {
		t.Fatalf("delete: %d %v", v, ok)
	}
	m.Set("b", 2, time.Hour)
	clock.Advance(2 * time.Second)
	if n := m.Cleanup(); n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestTTLMapBackgroundCleanup(t *testing.T) {
	m := NewTTLMap[string, int](10*time.Millisecond, 5*time.Millisecond)
	defer m.Close()
	m.Set("a", 1, 0)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		n := len(m.data)
		m.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("background cleanup did not purge the expired entry")
}
