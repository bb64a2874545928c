// Package lru provides the bounded least-recently-used map backing the
// in-memory tier of the processed-clip cache. It is an explicit hashmap +
// intrusive doubly-linked list so every operation is O(1) amortized; no
// ordered-map semantics are relied on.
//
// The cache is not goroutine safe; the owner serializes access.
package lru

// node is an intrusive list element. head.next is the most recently used
// entry, tail.prev the least recently used; head and tail are sentinels.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// Cache is a bounded LRU map from K to V.
type Cache[K comparable, V any] struct {
	capacity int
	items    map[K]*node[K, V]
	head     *node[K, V]
	tail     *node[K, V]
}

// minCapacity is the smallest capacity a cache can be clamped to.
const minCapacity = 1

// New creates a cache holding at most capacity entries. Capacities below 1
// are clamped to 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	c := &Cache[K, V]{
		capacity: max(minCapacity, capacity),
		items:    make(map[K]*node[K, V]),
		head:     &node[K, V]{},
		tail:     &node[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Len returns the number of entries currently held.
func (c *Cache[K, V]) Len() int {
	return len(c.items)
}

// Capacity returns the current bound.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Get returns the entry for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	n, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	return n.value, true
}

// Put inserts or overwrites the entry for key, marks it most recently used,
// and evicts from the least-recently-used end until the cache is within
// capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	if n, ok := c.items[key]; ok {
		n.value = value
		c.moveToFront(n)
		return
	}

	n := &node[K, V]{key: key, value: value}
	c.items[key] = n
	c.pushFront(n)
	c.evictOverflow()
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	clear(c.items)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// SetCapacity clamps n to at least 1 and evicts oldest entries until the
// cache fits the new bound.
func (c *Cache[K, V]) SetCapacity(n int) {
	c.capacity = max(minCapacity, n)
	c.evictOverflow()
}

// Keys returns the keys from most to least recently used. Intended for
// tests and diagnostics.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

func (c *Cache[K, V]) evictOverflow() {
	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		if oldest == c.head {
			return
		}
		c.unlink(oldest)
		delete(c.items, oldest.key)
	}
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if c.head.next == n {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}
