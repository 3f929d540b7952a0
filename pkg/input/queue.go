// Package input feeds the memory from outside: a concurrent queue the memory
// polls every cycle, and a reader for line-delimited JSON input.
package input

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/reckon/pkg/task"
)

// Queue is a FIFO of input items. Any goroutine may push; the memory pulls
// through NextTask. It satisfies memory.TaskSource.
type Queue struct {
	mu       sync.Mutex
	items    []task.Abstract
	capacity int
	closed   bool

	// room is signalled, without blocking, whenever an item is taken.
	room chan struct{}

	// done is closed by Close so waiting producers give up.
	done chan struct{}
}

// NewQueue creates a queue. A capacity of zero or less means unbounded.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		room:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push appends an item. It fails with ErrQueueFull when a bounded queue has
// no room.
func (q *Queue) Push(item task.Abstract) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, item)
	return nil
}

// PushWait appends an item, waiting for room on a full bounded queue until
// ctx is done or the queue is closed.
func (q *Queue) PushWait(ctx context.Context, item task.Abstract) error {
	for {
		err := q.Push(item)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.room:
		case <-q.done:
		}
	}
}

// NextTask pops the oldest item.
func (q *Queue) NextTask() (task.Abstract, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	select {
	case q.room <- struct{}{}:
	default:
	}
	return item, true
}

// Pending is the number of queued items.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes and wakes producers waiting in PushWait.
// Queued items can still be taken.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
