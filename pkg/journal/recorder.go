package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/events"
)

const defaultRecorderQueueSize = 1024

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	Driver  Driver
	Emitter *events.Emitter

	// QueueSize bounds entries waiting to be written. When the queue is
	// full new entries are dropped.
	QueueSize uint

	Logger *zap.Logger
}

// Recorder turns lifecycle events into journal entries. Handlers run on the
// memory's controller goroutine and only enqueue; a single goroutine writes
// to the driver.
type Recorder struct {
	driver Driver
	bus    *events.Emitter
	logger *zap.Logger

	queue chan *Entry
	wg    sync.WaitGroup
	subs  []events.Subscription

	// time and cycle are only touched by handlers.
	time  int64
	cycle int64

	// mu guards closing the queue against handlers still sending.
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewRecorder subscribes a recorder to the emitter and starts its writer.
func NewRecorder(c *RecorderConfig) (*Recorder, error) {
	if c.Driver == nil {
		return nil, ErrNotConfigured
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultRecorderQueueSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	r := &Recorder{
		driver: c.Driver,
		bus:    c.Emitter,
		logger: c.Logger,
		queue:  make(chan *Entry, c.QueueSize),
	}

	handlers := []struct {
		kind events.Kind
		fn   events.Handler
	}{
		{events.CycleStart, r.onCycle},
		{events.ResetEnd, r.onReset},
		{events.TaskAdd, r.onEvent},
		{events.TaskRemove, r.onEvent},
		{events.ConceptNew, r.onEvent},
		{events.ConceptForget, r.onEvent},
		{events.ConceptRemember, r.onEvent},
	}
	for _, h := range handlers {
		sub, err := c.Emitter.On(h.kind, h.fn)
		if err != nil {
			r.unsubscribe()
			return nil, err
		}
		r.subs = append(r.subs, sub)
	}

	r.wg.Add(1)
	go r.write()

	return r, nil
}

// Dropped is the number of entries lost to a full queue.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close unsubscribes and waits for queued entries to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.unsubscribe()
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) unsubscribe() {
	for _, sub := range r.subs {
		r.bus.Off(sub)
	}
	r.subs = nil
}

func (r *Recorder) onCycle(ev events.Event) {
	if c, ok := ev.(events.CycleStarted); ok {
		r.time = c.Time
		r.cycle++
	}
}

func (r *Recorder) onReset(events.Event) {
	r.time = 0
	r.cycle = 0
}

func (r *Recorder) onEvent(ev events.Event) {
	e := &Entry{
		Kind:     ev.Kind().String(),
		Time:     r.time,
		Cycle:    r.cycle,
		Recorded: time.Now().UTC(),
	}

	switch v := ev.(type) {
	case events.TaskAdded:
		e.Subject, e.Reason, e.Priority = v.Task.Key(), string(v.Reason), v.Task.Budget().Priority()
	case events.TaskRemoved:
		e.Subject, e.Reason, e.Priority = v.Task.Key(), string(v.Reason), v.Task.Budget().Priority()
	case events.ConceptCreated:
		e.Subject, e.Priority = v.Concept.Key(), v.Concept.Budget().Priority()
	case events.ConceptForgotten:
		e.Subject, e.Priority = v.Concept.Key(), v.Concept.Budget().Priority()
		if v.Cached {
			e.Reason = "cached"
		} else {
			e.Reason = "destroyed"
		}
	case events.ConceptRemembered:
		e.Subject, e.Priority = v.Concept.Key(), v.Concept.Budget().Priority()
	default:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped++
		r.logger.Warn("journal queue full, dropping entry",
			zap.String("kind", e.Kind),
			zap.String("subject", e.Subject),
		)
	}
}

func (r *Recorder) write() {
	defer r.wg.Done()
	r.logger.Debug("journal writer started")

	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.driver.Record(ctx, e); err != nil {
			r.logger.Error("failed to record journal entry",
				zap.String("kind", e.Kind),
				zap.String("subject", e.Subject),
				zap.Error(err),
			)
		}
		cancel()
	}

	r.logger.Debug("journal writer stopped")
}
