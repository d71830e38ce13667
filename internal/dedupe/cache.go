// ABOUTME: Thread-safe TTL cache that remembers the outcome of idempotent requests
// ABOUTME: A key is claimed while its request runs and replayed once it completes

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// State describes what the cache knows about a key.
type State int

const (
	// Absent means the key is unknown or expired; Claim takes it.
	Absent State = iota
	// Pending means another request holds the key and has not finished.
	Pending
	// Done means the key's outcome is recorded and should be replayed.
	Done
)

type entry[V any] struct {
	timestamp time.Time
	element   *list.Element
	done      bool
	value     V
}

// Cache maps idempotency keys to request outcomes for a bounded time.
// The oldest key is evicted first once maxSize is reached.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its background sweep.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Claim atomically reserves key for the caller. When the key is already
// pending or done it is left untouched, and the recorded value is returned
// for Done.
func (c *Cache[V]) Claim(key string) (State, V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.live(e) {
		if e.done {
			return Done, e.value
		}
		return Pending, e.value
	}

	c.insertLocked(key)
	var zero V
	return Absent, zero
}

// Complete records the outcome for a claimed key. The TTL restarts here.
func (c *Cache[V]) Complete(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = c.insertLocked(key)
	}
	e.done = true
	e.value = value
	e.timestamp = c.now()
	c.order.MoveToBack(e.element)
}

// Release drops a claim whose request did not produce an outcome, so the
// key can be retried.
func (c *Cache[V]) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && !e.done {
		c.removeLocked(key, e)
	}
}

// Len reports the number of stored keys, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) live(e *entry[V]) bool {
	return c.now().Sub(e.timestamp) < c.ttl
}

// insertLocked adds a pending entry for key. Must be called with mu held.
func (c *Cache[V]) insertLocked(key string) *entry[V] {
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.removeLocked(oldest, c.entries[oldest])
		}
	}

	e := &entry[V]{timestamp: c.now()}
	e.element = c.order.PushBack(key)
	c.entries[key] = e
	return e
}

func (c *Cache[V]) removeLocked(key string, e *entry[V]) {
	c.order.Remove(e.element)
	delete(c.entries, key)
}

func (c *Cache[V]) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes expired entries. Pending entries expire too, so a request
// that never completes does not hold its key forever.
func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !c.live(e) {
			c.removeLocked(key, e)
		}
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
