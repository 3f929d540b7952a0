// Package bag provides the bounded, priority-quantized containers that decide
// which concepts, tasks and links get processing time.
//
// A Bag groups its items into a fixed number of levels by priority. Selection
// with TakeNext is biased toward high levels without ever starving a
// non-empty low one, and overflow evicts the oldest item of the lowest
// non-empty level. A CacheBag is a plain insertion-ordered store for items
// displaced from a Bag.
//
// Neither type is safe for concurrent use. Every mutation of a given instance
// must happen on the goroutine that owns it.
package bag

import (
	"container/list"
	"iter"
	"math/rand/v2"
	"reflect"

	"github.com/papercomputeco/reckon/pkg/budget"
)

// Item is anything a Bag can hold: a unique key and a mutable budget.
type Item[K comparable] interface {
	Key() K
	Budget() *budget.Budget
}

type slot struct {
	level int
	elem  *list.Element
}

// Bag is a fixed-capacity multiset of items keyed by K and quantized into
// levels by priority.
type Bag[K comparable, V Item[K]] struct {
	levels   int
	capacity int

	buckets []*list.List
	index   map[K]slot

	dist *distributor
	pos  int

	// rng switches level selection from the deterministic distributor walk to
	// a weighted random draw.
	rng *rand.Rand
}

// Option configures a Bag.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithRand makes TakeNext draw levels at random, weighting level i by i+1,
// using r as the only source of randomness.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// New creates an empty bag. It fails when levels or capacity is below one.
func New[K comparable, V Item[K]](levels, capacity int, opts ...Option) (*Bag[K, V], error) {
	if levels < 1 {
		return nil, ErrInvalidLevels
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	b := &Bag[K, V]{
		levels:   levels,
		capacity: capacity,
		buckets:  make([]*list.List, levels),
		index:    make(map[K]slot, capacity),
		dist:     newDistributor(levels),
		rng:      o.rng,
	}
	for i := range b.buckets {
		b.buckets[i] = list.New()
	}

	return b, nil
}

// Levels returns the number of priority levels.
func (b *Bag[K, V]) Levels() int { return b.levels }

// Capacity returns the maximum number of items.
func (b *Bag[K, V]) Capacity() int { return b.capacity }

// Size returns the number of items currently held.
func (b *Bag[K, V]) Size() int { return len(b.index) }

// Contains reports whether an item with key is held.
func (b *Bag[K, V]) Contains(key K) bool {
	_, ok := b.index[key]
	return ok
}

// Get returns the item stored under key without removing it. Callers that
// change the item's priority should TakeOut and Put it instead so that it
// moves to the right level.
func (b *Bag[K, V]) Get(key K) (V, bool) {
	s, ok := b.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return s.elem.Value.(V), true
}

// Put inserts item at the level of its priority. A nil item or one with the
// zero key is rejected.
//
// When an item with the same key is already held, the incoming item takes its
// place with the two budgets merged, so re-insertion never weakens an item.
// When the insertion overflows capacity, the oldest item of the lowest
// non-empty level is removed and returned with ok set. That can be item
// itself.
func (b *Bag[K, V]) Put(item V) (evicted V, ok bool, err error) {
	if isNil(item) {
		return evicted, false, ErrNilItem
	}
	key := item.Key()
	var zeroKey K
	if key == zeroKey {
		return evicted, false, ErrInvalidKey
	}

	if old, exists := b.index[key]; exists {
		prev := b.buckets[old.level].Remove(old.elem).(V)
		delete(b.index, key)
		item.Budget().Merge(*prev.Budget())
	}

	b.insert(key, item)

	if len(b.index) > b.capacity {
		evicted, ok = b.evict()
	}
	return evicted, ok, nil
}

// PutBack decays item with decay, then puts it. It is the usual way to return
// an item obtained from TakeNext.
func (b *Bag[K, V]) PutBack(item V, decay func(*budget.Budget)) (V, bool, error) {
	if decay != nil {
		decay(item.Budget())
	}
	return b.Put(item)
}

// TakeNext removes and returns the oldest item of a level chosen with a bias
// toward high priority. It returns ok == false when the bag is empty.
func (b *Bag[K, V]) TakeNext() (V, bool) {
	var zero V
	if len(b.index) == 0 {
		return zero, false
	}

	level := b.selectLevel()
	if level < 0 {
		return zero, false
	}

	front := b.buckets[level].Front()
	item := b.buckets[level].Remove(front).(V)
	delete(b.index, item.Key())
	return item, true
}

// TakeOut removes and returns the item stored under key.
func (b *Bag[K, V]) TakeOut(key K) (V, bool) {
	s, ok := b.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(b.index, key)
	return b.buckets[s.level].Remove(s.elem).(V), true
}

// Clear removes every item.
func (b *Bag[K, V]) Clear() {
	for _, l := range b.buckets {
		l.Init()
	}
	clear(b.index)
	b.pos = 0
}

// All iterates over the held items from the highest level down, oldest first
// within a level. The bag must not be modified during iteration.
func (b *Bag[K, V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for level := b.levels - 1; level >= 0; level-- {
			for e := b.buckets[level].Front(); e != nil; e = e.Next() {
				if !yield(e.Value.(V)) {
					return
				}
			}
		}
	}
}

// LevelSize returns the number of items at level.
func (b *Bag[K, V]) LevelSize(level int) int {
	if level < 0 || level >= b.levels {
		return 0
	}
	return b.buckets[level].Len()
}

// AveragePriority returns the mean priority of the held items, or 0 when the
// bag is empty.
func (b *Bag[K, V]) AveragePriority() float64 {
	if len(b.index) == 0 {
		return 0
	}
	var sum float64
	for item := range b.All() {
		sum += item.Budget().Priority()
	}
	return sum / float64(len(b.index))
}

// LevelOf returns the level a priority falls into.
func (b *Bag[K, V]) LevelOf(priority float64) int {
	level := int(priority * float64(b.levels))
	switch {
	case level < 0:
		return 0
	case level >= b.levels:
		return b.levels - 1
	default:
		return level
	}
}

func (b *Bag[K, V]) insert(key K, item V) {
	level := b.LevelOf(item.Budget().Priority())
	elem := b.buckets[level].PushBack(item)
	b.index[key] = slot{level: level, elem: elem}
}

func (b *Bag[K, V]) evict() (V, bool) {
	for level := range b.levels {
		l := b.buckets[level]
		if l.Len() == 0 {
			continue
		}
		item := l.Remove(l.Front()).(V)
		delete(b.index, item.Key())
		return item, true
	}
	var zero V
	return zero, false
}

func (b *Bag[K, V]) selectLevel() int {
	if b.rng != nil {
		return b.drawLevel()
	}

	// Every level appears in the distributor, so one sweep finds a
	// non-empty one.
	for range b.dist.len() {
		level := b.dist.pick(b.pos)
		b.pos = b.dist.next(b.pos)
		if b.buckets[level].Len() > 0 {
			return level
		}
	}
	return -1
}

func (b *Bag[K, V]) drawLevel() int {
	total := 0
	for level, l := range b.buckets {
		if l.Len() > 0 {
			total += level + 1
		}
	}
	if total == 0 {
		return -1
	}

	n := b.rng.IntN(total)
	for level, l := range b.buckets {
		if l.Len() == 0 {
			continue
		}
		n -= level + 1
		if n < 0 {
			return level
		}
	}
	return -1
}

// isNil reports whether v is a nil interface, pointer, map, slice, channel or
// func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
