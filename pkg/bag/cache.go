package bag

import (
	"container/list"
	"iter"
)

// CacheBag holds items displaced from a Bag so they can be restored cheaply.
// When full, the least recently inserted item is dropped for good. A cache
// with capacity zero is disabled and drops everything it is given.
type CacheBag[K comparable, V Item[K]] struct {
	capacity int
	order    *list.List
	index    map[K]*list.Element
}

// NewCache creates an empty cache. A negative capacity is rejected.
func NewCache[K comparable, V Item[K]](capacity int) (*CacheBag[K, V], error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	return &CacheBag[K, V]{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[K]*list.Element, capacity),
	}, nil
}

// Enabled reports whether the cache keeps anything at all.
func (c *CacheBag[K, V]) Enabled() bool { return c.capacity > 0 }

// Capacity returns the maximum number of cached items.
func (c *CacheBag[K, V]) Capacity() int { return c.capacity }

// Size returns the number of cached items.
func (c *CacheBag[K, V]) Size() int { return len(c.index) }

// Contains reports whether key is cached.
func (c *CacheBag[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Put caches item and returns whatever had to be dropped to make room. On a
// disabled cache the item itself is returned. Re-caching a key replaces the
// previous entry and makes it the newest.
func (c *CacheBag[K, V]) Put(item V) (dropped V, ok bool, err error) {
	if isNil(item) {
		return dropped, false, ErrNilItem
	}
	key := item.Key()
	var zeroKey K
	if key == zeroKey {
		return dropped, false, ErrInvalidKey
	}
	if c.capacity == 0 {
		return item, true, nil
	}

	if e, exists := c.index[key]; exists {
		c.order.Remove(e)
		delete(c.index, key)
	}
	c.index[key] = c.order.PushBack(item)

	if len(c.index) > c.capacity {
		front := c.order.Front()
		dropped = c.order.Remove(front).(V)
		delete(c.index, dropped.Key())
		return dropped, true, nil
	}
	return dropped, false, nil
}

// Restore removes and returns the item cached under key.
func (c *CacheBag[K, V]) Restore(key K) (V, bool) {
	e, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.index, key)
	return c.order.Remove(e).(V), true
}

// Clear drops every cached item.
func (c *CacheBag[K, V]) Clear() {
	c.order.Init()
	clear(c.index)
}

// All iterates over cached items, oldest first.
func (c *CacheBag[K, V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for e := c.order.Front(); e != nil; e = e.Next() {
			if !yield(e.Value.(V)) {
				return
			}
		}
	}
}
