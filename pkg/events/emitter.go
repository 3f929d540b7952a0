// Package events provides the typed, in-process publish/subscribe bus that
// announces lifecycle transitions of the memory and its parts.
//
// Event kinds form a closed set (see Kind) and each kind has one payload type.
// Emit delivers synchronously, in registration order, to a snapshot of the
// subscribers of that kind. In deferred mode, On and Off are queued and only
// take effect at the next Synch, which the driver calls between cycles.
package events

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler receives events of the kind it was registered for.
type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription struct {
	kind Kind
	id   uint64
}

// Kind returns the kind the subscription listens to.
func (s Subscription) Kind() Kind { return s.kind }

type entry struct {
	id uint64
	fn Handler
}

type pendingOp struct {
	add bool
	sub Subscription
	fn  Handler
}

// Emitter is the event bus. The zero value is not usable; call NewEmitter.
type Emitter struct {
	// lists holds one immutable subscriber slice per kind. Writers replace
	// the slice under mu; Emit loads it without locking.
	lists [numKinds]atomic.Pointer[[]entry]

	mu       sync.Mutex
	pending  []pendingOp
	deferred bool
	nextID   uint64

	logger *zap.Logger
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithLogger sets the logger used to report handler panics.
func WithLogger(l *zap.Logger) EmitterOption {
	return func(e *Emitter) {
		e.logger = l
	}
}

// WithDeferred starts the emitter in deferred mode.
func WithDeferred(deferred bool) EmitterOption {
	return func(e *Emitter) {
		e.deferred = deferred
	}
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDeferred switches deferred mode. Leaving deferred mode applies any
// queued changes.
func (e *Emitter) SetDeferred(deferred bool) {
	e.mu.Lock()
	e.deferred = deferred
	e.mu.Unlock()
	if !deferred {
		e.Synch()
	}
}

// On registers fn for kind. In deferred mode the registration takes effect at
// the next Synch.
func (e *Emitter) On(kind Kind, fn Handler) (Subscription, error) {
	if !kind.Valid() {
		return Subscription{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if fn == nil {
		return Subscription{}, ErrNilHandler
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	sub := Subscription{kind: kind, id: e.nextID}
	if e.deferred {
		e.pending = append(e.pending, pendingOp{add: true, sub: sub, fn: fn})
		return sub, nil
	}
	e.add(sub, fn)
	return sub, nil
}

// Off removes a subscription. Unknown subscriptions are ignored. In deferred
// mode the removal takes effect at the next Synch.
func (e *Emitter) Off(sub Subscription) {
	if !sub.kind.Valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deferred {
		e.pending = append(e.pending, pendingOp{sub: sub})
		return
	}
	e.remove(sub)
}

// Synch applies queued registrations and removals in the order they were
// made. It must not be called from inside a handler.
func (e *Emitter) Synch() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, op := range e.pending {
		if op.add {
			e.add(op.sub, op.fn)
		} else {
			e.remove(op.sub)
		}
	}
	e.pending = nil
}

// Pending returns the number of queued registrations and removals.
func (e *Emitter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// IsActive reports whether kind has any subscriber. Callers use it to skip
// building payloads nobody will see.
func (e *Emitter) IsActive(kind Kind) bool {
	if !kind.Valid() {
		return false
	}
	l := e.lists[kind].Load()
	return l != nil && len(*l) > 0
}

// Emit delivers ev to every current subscriber of its kind, in registration
// order. A panicking handler is logged and skipped.
func (e *Emitter) Emit(ev Event) {
	kind := ev.Kind()
	if !kind.Valid() {
		return
	}
	l := e.lists[kind].Load()
	if l == nil {
		return
	}
	for _, en := range *l {
		e.deliver(kind, en, ev)
	}
}

func (e *Emitter) deliver(kind Kind, en entry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked",
				zap.Stringer("kind", kind),
				zap.Uint64("subscription", en.id),
				zap.Any("recover", r),
			)
		}
	}()
	en.fn(ev)
}

// add and remove must be called with mu held.
func (e *Emitter) add(sub Subscription, fn Handler) {
	var next []entry
	if cur := e.lists[sub.kind].Load(); cur != nil {
		next = slices.Clone(*cur)
	}
	next = append(next, entry{id: sub.id, fn: fn})
	e.lists[sub.kind].Store(&next)
}

func (e *Emitter) remove(sub Subscription) {
	cur := e.lists[sub.kind].Load()
	if cur == nil {
		return
	}
	next := slices.DeleteFunc(slices.Clone(*cur), func(en entry) bool {
		return en.id == sub.id
	})
	e.lists[sub.kind].Store(&next)
}

// Subscribe registers a handler typed on a payload type. The kind is taken
// from the payload type itself.
func Subscribe[E Event](e *Emitter, fn func(E)) (Subscription, error) {
	var zero E
	return e.On(zero.Kind(), func(ev Event) {
		if typed, ok := ev.(E); ok {
			fn(typed)
		}
	})
}
