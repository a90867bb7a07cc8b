// Package ttlcache is a process-local key/value cache whose entries expire
// a fixed duration after they were stored.
//
// Expiry is lazy: an entry past its TTL is dropped the next time its key is
// looked up, never served. Keys hash onto a fixed set of lock stripes so
// read-check-expire-write on one key is serialized while unrelated keys
// proceed independently.
package ttlcache

import (
	"hash/fnv"
	"sync"
	"time"
)

const stripes = 32

// Observer receives cache events, typically to feed metrics.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheExpired(cache string)
}

type options struct {
	now      func() time.Time
	observer Observer
}

// Option customises a Cache.
type Option func(*options)

// WithClock replaces time.Now. Used by tests to move time forward.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver reports hits, misses and lazy expirations to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type stripe[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
}

// Cache maps string keys to values of type V with a fixed time-to-live.
type Cache[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	obs     Observer
	stripes [stripes]stripe[V]
}

// New creates an empty cache. name labels observer events.
func New[V any](name string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	c := &Cache[V]{name: name, ttl: ttl, now: o.now, obs: o.observer}
	for i := range c.stripes {
		c.stripes[i].items = make(map[string]entry[V])
	}
	return c
}

// Name returns the label given at construction.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

func (c *Cache[V]) stripeFor(key string) *stripe[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.stripes[h.Sum32()%stripes]
}

// Get returns the value stored under key if it is younger than the TTL.
// An expired entry is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.stripeFor(key)
	s.mu.Lock()
	e, ok := s.items[key]
	expired := ok && c.now().Sub(e.storedAt) >= c.ttl
	if expired {
		delete(s.items, key)
	}
	s.mu.Unlock()

	if !ok || expired {
		if expired {
			c.event(Observer.CacheExpired)
		}
		c.event(Observer.CacheMiss)
		var zero V
		return zero, false
	}
	c.event(Observer.CacheHit)
	return e.value, true
}

// Put stores value under key, stamped with the current time. An existing
// entry is replaced.
func (c *Cache[V]) Put(key string, value V) {
	s := c.stripeFor(key)
	s.mu.Lock()
	s.items[key] = entry[V]{value: value, storedAt: c.now()}
	s.mu.Unlock()
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	s := c.stripeFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	for i := range c.stripes {
		s := &c.stripes[i]
		s.mu.Lock()
		clear(s.items)
		s.mu.Unlock()
	}
}

// Len counts stored entries, expired ones included until they are looked up.
func (c *Cache[V]) Len() int {
	n := 0
	for i := range c.stripes {
		s := &c.stripes[i]
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

func (c *Cache[V]) event(fn func(Observer, string)) {
	if c.obs != nil {
		fn(c.obs, c.name)
	}
}
