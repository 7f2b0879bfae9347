// Package cache holds in-process caches with per-key expiry.
package cache

import (
	"sync"
	"time"
)

// Stats is a snapshot of TTLMap usage.
type Stats struct {
	Entries     int       `json:"entries"`
	Hits        uint64    `json:"hits"`
	Misses      uint64    `json:"misses"`
	Evictions   uint64    `json:"evictions"`
	LastCleanup time.Time `json:"lastCleanup,omitzero"`
}

// TTLMap is a concurrent map whose entries expire after a TTL.
//   - Set with ttl <= 0 applies the default TTL; a default <= 0 means no expiry.
//   - With sliding expiry, every Get pushes the deadline forward.
//   - A background goroutine purges expired entries when cleanupInterval > 0.
type TTLMap[K comparable, V any] struct {
	mu              sync.Mutex
	data            map[K]*ttlEntry[V]
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	sliding         bool
	onEvict         func(K, V)
	now             func() time.Time

	stats Stats

	stopOnce sync.Once
	stopCh   chan struct{}
}

type ttlEntry[V any] struct {
	value     V
	ttl       time.Duration
	expiresAt time.Time
}

func (e *ttlEntry[V]) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.expiresAt)
}

// NewTTLMap creates a TTLMap and starts its cleanup loop when
// cleanupInterval > 0. Call Close to stop it.
func NewTTLMap[K comparable, V any](defaultTTL, cleanupInterval time.Duration) *TTLMap[K, V] {
	m := &TTLMap[K, V]{
		data:            make(map[K]*ttlEntry[V]),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanupLoop()
	}
	return m
}

// WithSliding makes Get refresh the entry deadline.
func (m *TTLMap[K, V]) WithSliding() *TTLMap[K, V] {
	m.sliding = true
	return m
}

// WithEvictHook registers fn to run, outside the lock, for every entry that
// expires. Explicit deletes do not trigger it.
func (m *TTLMap[K, V]) WithEvictHook(fn func(K, V)) *TTLMap[K, V] {
	m.onEvict = fn
	return m
}

// Close stops the background cleanup goroutine, if any.
func (m *TTLMap[K, V]) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Get returns the value for key unless it is absent or expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	now := m.now()
	m.mu.Lock()
	e, ok := m.data[key]
	if !ok || e.expired(now) {
		m.stats.Misses++
		var evicted []K
		var values []V
		if ok {
			delete(m.data, key)
			m.stats.Evictions++
			evicted, values = append(evicted, key), append(values, e.value)
		}
		m.mu.Unlock()
		m.notify(evicted, values)
		var zero V
		return zero, false
	}
	m.stats.Hits++
	if m.sliding && e.ttl > 0 {
		e.expiresAt = now.Add(e.ttl)
	}
	v := e.value
	m.mu.Unlock()
	return v, true
}

// Set stores value under key.
func (m *TTLMap[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	e := &ttlEntry[V]{value: value, ttl: ttl}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
}

// Delete removes key and reports whether it was present and live.
func (m *TTLMap[K, V]) Delete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(m.data, key)
	if e.expired(m.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Len returns the number of live entries.
func (m *TTLMap[K, V]) Len() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Keys returns the live keys at the time of calling.
func (m *TTLMap[K, V]) Keys() []K {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.data))
	for k, e := range m.data {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Cleanup purges expired entries and returns how many were removed.
func (m *TTLMap[K, V]) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	var (
		keys   []K
		values []V
	)
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
			keys = append(keys, k)
			values = append(values, e.value)
		}
	}
	m.stats.Evictions += uint64(len(keys))
	m.stats.LastCleanup = now
	m.mu.Unlock()
	m.notify(keys, values)
	return len(keys)
}

// Stats returns usage counters.
func (m *TTLMap[K, V]) Stats() Stats {
	n := m.Len()
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Entries = n
	return s
}

func (m *TTLMap[K, V]) notify(keys []K, values []V) {
	if m.onEvict == nil {
		return
	}
	for i, k := range keys {
		m.onEvict(k, values[i])
	}
}

func (m *TTLMap[K, V]) cleanupLoop() {
	t := time.NewTicker(m.cleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.Cleanup()
		case <-m.stopCh:
			return
		}
	}
}
