package cache

import (
	"sync"
	"time"

	"github.com/neexbeast/tripfinder/internal/metrics"
)

const (
	defaultMaxEntries = 1000
	defaultLRUTTL     = time.Hour
)

// Entry is a cached value with its bookkeeping.
type Entry[T any] struct {
	Key            string
	Value          T
	CreatedAt      time.Time
	ExpiresAt      time.Time
	AccessCount    int64
	LastAccessedAt time.Time

	prev *Entry[T]
	next *Entry[T]
}

// Options configures an LRU.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// LRU is a bounded, expiring key/value store safe for concurrent use.
// The list runs from most recently accessed (head.next) to least (tail.prev).
type LRU[T any] struct {
	mu sync.Mutex

	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	items map[string]*Entry[T]
	head  *Entry[T]
	tail  *Entry[T]

	hits      int64
	misses    int64
	evictions int64
}

// NewLRU constructs an LRU. name labels its metrics.
func NewLRU[T any](name string, opts Options) *LRU[T] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultLRUTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &LRU[T]{
		name:       name,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		items:      make(map[string]*Entry[T]),
		head:       &Entry[T]{},
		tail:       &Entry[T]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the value for key. Expired entries are removed and reported as a miss.
func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	now := c.now()

	e, ok := c.items[key]
	if !ok {
		c.recordMiss()
		return zero, false
	}
	if !now.Before(e.ExpiresAt) {
		c.unlink(e)
		delete(c.items, key)
		c.recordMiss()
		return zero, false
	}

	e.AccessCount++
	e.LastAccessedAt = now
	c.moveToFront(e)
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()

	return e.Value, true
}

// Set stores value under key, evicting the least recently accessed entry when full.
func (c *LRU[T]) Set(key string, value T) {
	c.SetTTL(key, value, 0)
}

// SetTTL is Set with a per-entry lifetime; ttl <= 0 uses the cache TTL.
func (c *LRU[T]) SetTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()

	if e, ok := c.items[key]; ok {
		e.Value = value
		e.CreatedAt = now
		e.ExpiresAt = now.Add(ttl)
		e.LastAccessedAt = now
		c.moveToFront(e)
		return
	}

	for len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	e := &Entry[T]{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
	}
	c.pushFront(e)
	c.items[key] = e
}

// Peek returns a copy of the entry for key without touching recency or counters.
func (c *LRU[T]) Peek(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return Entry[T]{}, false
	}
	out := *e
	out.prev, out.next = nil, nil
	return out, true
}

// Delete removes key and reports whether it was present.
func (c *LRU[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(e)
	delete(c.items, key)
	return true
}

// Purge drops every entry. Counters are kept.
func (c *LRU[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*Entry[T])
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Len returns the number of stored entries, expired or not.
func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the current counters.
func (c *LRU[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		Capacity:  c.maxEntries,
	}
}

// Name returns the label the cache was constructed with.
func (c *LRU[T]) Name() string {
	return c.name
}

func (c *LRU[T]) recordMiss() {
	c.misses++
	metrics.CacheMisses.WithLabelValues(c.name).Inc()
}

func (c *LRU[T]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.unlink(oldest)
	delete(c.items, oldest.Key)
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

func (c *LRU[T]) pushFront(e *Entry[T]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[T]) unlink(e *Entry[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (c *LRU[T]) moveToFront(e *Entry[T]) {
	c.unlink(e)
	c.pushFront(e)
}
