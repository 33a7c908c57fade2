package decision

import "sync"

// Cache is a bounded memoization store keyed by string. Values are built
// fresh elsewhere and treated as read-only once inserted, so concurrent
// read/insert from parallel decision calls is safe. When full, the oldest
// insertion is evicted.
type Cache[V any] struct {
	mu      sync.Mutex
	max     int
	entries map[string]V
	order   []string
}

// NewCache creates a cache holding at most max entries. max <= 0 disables
// bounding.
func NewCache[V any](max int) *Cache[V] {
	return &Cache[V]{
		max:     max,
		entries: make(map[string]V),
	}
}

// Get returns the cached value for key, if present.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a value, evicting the oldest entry when the bound is reached.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if c.max > 0 && len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = v
}

// Purge drops every entry. Used when the engine is reconfigured.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
	c.order = nil
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
