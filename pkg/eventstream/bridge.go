package eventstream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/task"
)

const defaultBridgeQueueSize = 256

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	Publisher Publisher
	Emitter   *events.Emitter
	Source    EventSource

	// QueueSize bounds events waiting to be published. When the queue is
	// full new events are dropped.
	QueueSize uint

	// PublishTimeout bounds a single Publish call.
	PublishTimeout time.Duration

	Logger *zap.Logger
}

// Bridge forwards memory events to a Publisher. Handlers run on the
// controller goroutine and never block on the network: they build the
// payload and hand it to a publishing goroutine.
type Bridge struct {
	publisher Publisher
	bus       *events.Emitter
	source    EventSource
	timeout   time.Duration
	logger    *zap.Logger

	queue chan *LifecycleEvent
	wg    sync.WaitGroup
	subs  []events.Subscription

	// meta is only touched by handlers.
	meta MemoryMeta

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewBridge subscribes a bridge to the emitter and starts publishing.
func NewBridge(c *BridgeConfig) (*Bridge, error) {
	if c.Publisher == nil || c.Emitter == nil {
		return nil, ErrBridgeConfig
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultBridgeQueueSize
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	b := &Bridge{
		publisher: c.Publisher,
		bus:       c.Emitter,
		source:    c.Source,
		timeout:   c.PublishTimeout,
		logger:    c.Logger,
		queue:     make(chan *LifecycleEvent, c.QueueSize),
	}

	for _, k := range []events.Kind{
		events.CycleStart, events.ResetEnd,
		events.TaskAdd, events.TaskRemove,
		events.ConceptNew, events.ConceptForget,
		events.Output,
	} {
		sub, err := c.Emitter.On(k, b.handle)
		if err != nil {
			b.unsubscribe()
			return nil, err
		}
		b.subs = append(b.subs, sub)
	}

	b.wg.Add(1)
	go b.publish()

	return b, nil
}

// Dropped is the number of events lost to a full queue.
func (b *Bridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close unsubscribes, publishes what is queued and closes the publisher.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.unsubscribe()
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
	return b.publisher.Close()
}

func (b *Bridge) unsubscribe() {
	for _, sub := range b.subs {
		b.bus.Off(sub)
	}
	b.subs = nil
}

func (b *Bridge) handle(ev events.Event) {
	var out *LifecycleEvent

	switch v := ev.(type) {
	case events.CycleStarted:
		b.meta.Time = v.Time
		b.meta.Cycle++
		return
	case events.ResetEnded:
		b.meta = MemoryMeta{}
		return
	case events.TaskAdded:
		out = b.event(EventTypeTaskAdded)
		out.Reason = string(v.Reason)
		out.Task = taskMeta(v.Task)
	case events.TaskRemoved:
		out = b.event(EventTypeTaskRemoved)
		out.Reason = string(v.Reason)
		out.Task = taskMeta(v.Task)
	case events.ConceptCreated:
		out = b.event(EventTypeConceptCreated)
		out.Concept = conceptMeta(v.Concept, false)
	case events.ConceptForgotten:
		out = b.event(EventTypeConceptForgotten)
		out.Concept = conceptMeta(v.Concept, v.Cached)
	case events.OutputReported:
		out = b.event(EventTypeOutput)
		out.Task = taskMeta(v.Task)
	default:
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- out:
	default:
		b.dropped++
		b.logger.Warn("event stream queue full, dropping event",
			zap.String("event_type", out.EventType),
		)
	}
}

func (b *Bridge) event(eventType string) *LifecycleEvent {
	return &LifecycleEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        b.source,
		Memory:        b.meta,
	}
}

func (b *Bridge) publish() {
	defer b.wg.Done()

	for ev := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := b.publisher.Publish(ctx, ev); err != nil {
			b.logger.Error("failed to publish event",
				zap.String("event_type", ev.EventType),
				zap.String("event_id", ev.EventID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

func taskMeta(t *task.Task) *TaskMeta {
	b := t.Budget()
	return &TaskMeta{
		Key:         t.Key(),
		Term:        t.Term().Name(),
		Punctuation: t.Sentence.Punctuation.String(),
		Priority:    b.Priority(),
		Durability:  b.Durability(),
		Quality:     b.Quality(),
		Input:       t.IsInput(),
	}
}

func conceptMeta(c *concept.Concept, cached bool) *ConceptMeta {
	return &ConceptMeta{
		Term:     c.Key(),
		Priority: c.Budget().Priority(),
		Cached:   cached,
	}
}
