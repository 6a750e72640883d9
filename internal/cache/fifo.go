package cache

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/seqloc/model"
)

// FIFO is a bounded map from integer ids to values with first-in-first-out eviction.
// It is safe for concurrent use.
type FIFO[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[int]*list.Element
	order    *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[V any] struct {
	id    int
	value V
}

// NewFIFO creates a buffer holding at most capacity entries.
// A capacity of zero stores nothing.
func NewFIFO[V any](capacity int) (*FIFO[V], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: buffer capacity %d must not be negative", model.ErrInvalidConfig, capacity)
	}
	return &FIFO[V]{
		capacity: capacity,
		items:    make(map[int]*list.Element, capacity),
		order:    list.New(),
	}, nil
}

// Add stores value under id. When the buffer is full, the oldest inserted id
// is evicted first. Adding an id that is already present overwrites its value
// without changing its eviction position and reports replaced=true.
func (c *FIFO[V]) Add(id int, value V) (replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		el.Value.(*entry[V]).value = value
		return true
	}
	if c.capacity == 0 {
		return false
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).id)
		c.evictions.Add(1)
	}
	c.items[id] = c.order.PushBack(&entry[V]{id: id, value: value})
	return false
}

// Get returns the value stored under id.
func (c *FIFO[V]) Get(id int) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		c.hits.Add(1)
		return el.Value.(*entry[V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Contains reports whether id is buffered.
func (c *FIFO[V]) Contains(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[id]
	return ok
}

// IDs returns the buffered ids, oldest first.
func (c *FIFO[V]) IDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(*entry[V]).id)
	}
	return ids
}

// Len returns the number of buffered entries.
func (c *FIFO[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the capacity of the buffer.
func (c *FIFO[V]) Cap() int {
	return c.capacity
}

// Stats returns hit, miss and eviction counts.
func (c *FIFO[V]) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}
