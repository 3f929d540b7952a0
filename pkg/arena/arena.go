// Package arena stores values behind generational handles.
//
// Links between tasks, concepts and parent tasks hold a Handle instead of a
// pointer. Removing a value bumps the generation of its slot, so stale handles
// resolve to nothing rather than to whatever reused the slot.
package arena

import (
	"fmt"
	"sync"
)

// Handle is an opaque reference to a value in an Arena. The zero Handle
// never resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "#nil"
	}
	return fmt.Sprintf("#%d.%d", h.index, h.gen)
}

type slot[T any] struct {
	value T
	gen   uint32
	refs  int
	live  bool
}

// Arena is a reference-counted, generation-checked store. It is safe for
// concurrent use.
type Arena[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	// Slot 0 is never handed out.
	return &Arena[T]{slots: make([]slot[T], 1)}
}

// Insert stores v with a reference count of one and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.value = v
	s.refs = 1
	s.live = true
	a.live++

	return Handle{index: idx, gen: s.gen}
}

// Get resolves h.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Retain adds a reference to h. It returns false for a stale handle.
func (a *Arena[T]) Retain(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	s.refs++
	return true
}

// Release drops a reference to h. When the last reference goes, the value is
// removed and returned with removed set.
func (a *Arena[T]) Release(h Handle) (v T, removed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(h)
	if !ok {
		return v, false
	}
	s.refs--
	if s.refs > 0 {
		return v, false
	}
	return a.remove(h.index), true
}

// Remove deletes the value behind h regardless of its reference count.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.lookup(h); !ok {
		var zero T
		return zero, false
	}
	return a.remove(h.index), true
}

// Refs returns the reference count of h, or 0 for a stale handle.
func (a *Arena[T]) Refs(h Handle) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		return 0
	}
	return s.refs
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Clear removes every value. Outstanding handles become stale.
func (a *Arena[T]) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 1; i < len(a.slots); i++ {
		if a.slots[i].live {
			a.remove(uint32(i))
		}
	}
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], bool) {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return s, true
}

func (a *Arena[T]) remove(idx uint32) T {
	s := &a.slots[idx]
	v := s.value
	var zero T
	s.value = zero
	s.refs = 0
	s.live = false
	a.free = append(a.free, idx)
	a.live--
	return v
}
