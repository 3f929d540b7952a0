package memory

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/bag"
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/inference"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

// Attention owns the concept bag and its cache. It decides which concepts
// fire and what happens to the ones that fall out of the bag.
//
// Everything except the firing itself runs on the controller goroutine.
type Attention struct {
	m *Memory

	concepts *bag.Bag[string, *concept.Concept]
	cache    *bag.CacheBag[string, *concept.Concept]

	// inFlight holds concepts taken out of the bag for firing. A concept is
	// never in the bag and in flight at the same time.
	inFlight map[string]*concept.Concept

	conceptConfig concept.Config
	pool          *firePool
}

// fireResult is what firing one concept produces. Workers fill it; the
// controller applies it.
type fireResult struct {
	derived  []derivation
	released []*concept.TaskLink
	err      error
}

type derivation struct {
	task   *task.Task
	parent *task.Task
}

func newAttention(m *Memory, p Params, opts []bag.Option) (*Attention, error) {
	concepts, err := bag.New[string, *concept.Concept](p.ConceptBagLevels, p.ConceptBagSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("concept bag: %w", err)
	}
	cache, err := bag.NewCache[string, *concept.Concept](p.ConceptCacheSize)
	if err != nil {
		return nil, fmt.Errorf("concept cache: %w", err)
	}

	a := &Attention{
		m:        m,
		concepts: concepts,
		cache:    cache,
		inFlight: make(map[string]*concept.Concept),
		conceptConfig: concept.Config{
			TaskLinkLevels:   p.TaskLinkBagLevels,
			TaskLinkCapacity: p.TaskLinkBagSize,
			TermLinkLevels:   p.TermLinkBagLevels,
			TermLinkCapacity: p.TermLinkBagSize,
		},
	}

	if p.Threads > 1 {
		a.pool, err = newFirePool(&firePoolConfig{
			NumWorkers: uint(p.Threads),
			QueueSize:  uint(max(p.ConceptsFiredPerCycle, 1)),
			Fire:       a.fireConcept,
			Logger:     m.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Concept returns the live concept for t, in the bag or currently firing.
func (a *Attention) Concept(t term.Term) (*concept.Concept, bool) {
	key := t.Name()
	if c, ok := a.concepts.Get(key); ok {
		return c, true
	}
	c, ok := a.inFlight[key]
	return c, ok
}

// Size is the number of concepts in the bag.
func (a *Attention) Size() int { return a.concepts.Size() }

// CacheSize is the number of cached concepts.
func (a *Attention) CacheSize() int { return a.cache.Size() }

// All iterates over the concepts in the bag, highest priority first.
func (a *Attention) All() iter.Seq[*concept.Concept] { return a.concepts.All() }

// AveragePriority is the mean priority of the concepts in the bag.
func (a *Attention) AveragePriority() float64 { return a.concepts.AveragePriority() }

// Conceptualize returns the concept for t, creating, restoring or
// strengthening it with b. It returns false when no concept could be kept:
// the budget was too weak to create one, or the new concept was the one
// displaced from a full bag.
func (a *Attention) Conceptualize(t term.Term, b budget.Budget) (*concept.Concept, bool) {
	key := t.Name()
	if key == "" {
		return nil, false
	}

	if c, ok := a.inFlight[key]; ok {
		c.Activate(b)
		return c, true
	}

	var c *concept.Concept
	created := false

	if existing, ok := a.concepts.TakeOut(key); ok {
		c = existing
		c.Activate(b)
	} else if cached, ok := a.cache.Restore(key); ok {
		c = cached
		c.Activate(b)
		a.m.emit(events.ConceptRemembered{Concept: c})
	} else {
		if !b.AboveThreshold(a.m.params.BudgetThreshold) {
			return nil, false
		}
		fresh, err := concept.New(t, b, a.m.clock.time(), a.conceptConfig)
		if err != nil {
			a.m.logger.Error("creating concept", zap.String("term", key), zap.Error(err))
			return nil, false
		}
		c = fresh
		created = true
	}

	evicted, displaced, err := a.concepts.Put(c)
	if err != nil {
		a.m.logger.Error("putting concept", zap.String("term", key), zap.Error(err))
		return nil, false
	}
	if created {
		a.m.emit(events.ConceptCreated{Concept: c})
	}
	if displaced {
		a.forget(evicted)
		if evicted == c {
			return nil, false
		}
	}
	return c, true
}

// fire selects up to n concepts, fires them, returns them to the bag and
// admits what they derived.
func (a *Attention) fire(ctx context.Context, n int) {
	selected := make([]*concept.Concept, 0, n)
	for range n {
		c, ok := a.concepts.TakeNext()
		if !ok {
			break
		}
		a.inFlight[c.Key()] = c
		selected = append(selected, c)
		a.m.emit(events.ConceptFired{Concept: c})
	}
	if len(selected) == 0 {
		return
	}

	var results []fireResult
	if a.pool != nil {
		results = a.pool.fireAll(ctx, selected)
	} else {
		results = make([]fireResult, len(selected))
		for i, c := range selected {
			results[i] = a.fireConcept(ctx, c)
		}
	}

	for _, c := range selected {
		delete(a.inFlight, c.Key())
		a.putBack(c)
	}

	for _, r := range results {
		if r.err != nil {
			a.m.reportError(r.err)
		}
		for _, l := range r.released {
			a.m.releaseTask(l.Target(), events.Completed)
		}
		for _, d := range r.derived {
			a.m.admitDerived(d.task, d.parent, events.Derived)
		}
	}
}

// fireConcept runs on a worker goroutine. It may only touch c, the task
// arena and the engine.
func (a *Attention) fireConcept(ctx context.Context, c *concept.Concept) (res fireResult) {
	link, ok := c.TakeTaskLink()
	if !ok {
		return res
	}

	t, alive := a.m.tasks.Get(link.Target())
	if !alive {
		// The task is gone; so is the link.
		return res
	}

	termLink, hasTermLink := c.TakeTermLink()
	now := a.m.forgetClock()

	fc := inference.FireContext{
		Concept:  c,
		TaskLink: link,
		Task:     t,
		Now:      a.m.clock.time(),
		Serials:  &a.m.serials,
		Trace:    a.m.trace,
	}
	if hasTermLink {
		fc.TermLink = termLink
	}
	fc.Trace.Emit(inference.TracePoint{Stage: inference.StageFire, Concept: c, Task: t})

	derived, err := a.m.safeFire(ctx, fc)
	res.err = err
	for _, d := range derived {
		res.derived = append(res.derived, derivation{task: d, parent: t})
	}

	if ev, dropped := c.ReturnTaskLink(link, a.m.forgetter(a.m.params.TaskLinkForgetDurations, now)); dropped {
		res.released = append(res.released, ev)
	}
	if hasTermLink {
		c.ReturnTermLink(termLink, a.m.forgetter(a.m.params.TermLinkForgetDurations, now))
	}
	return res
}

func (a *Attention) putBack(c *concept.Concept) {
	a.m.forgetter(a.m.params.ConceptForgetDurations, a.m.forgetClock())(c.Budget())
	evicted, displaced, err := a.concepts.Put(c)
	if err != nil {
		a.m.logger.Error("returning concept", zap.String("term", c.Key()), zap.Error(err))
		return
	}
	if displaced {
		a.forget(evicted)
	}
}

// forget moves a concept displaced from the bag to the cache, or destroys it
// when there is no room.
func (a *Attention) forget(c *concept.Concept) {
	if !a.cache.Enabled() {
		a.destroy(c)
		return
	}

	dropped, full, err := a.cache.Put(c)
	if err != nil {
		a.m.logger.Error("caching concept", zap.String("term", c.Key()), zap.Error(err))
		a.destroy(c)
		return
	}
	a.m.emit(events.ConceptForgotten{Concept: c, Cached: true})
	if full {
		a.destroy(dropped)
	}
}

func (a *Attention) destroy(c *concept.Concept) {
	a.m.emit(events.ConceptForgotten{Concept: c, Cached: false})
	for _, l := range c.DrainTaskLinks() {
		a.m.releaseTask(l.Target(), events.Completed)
	}
	a.m.logger.Debug("concept destroyed", zap.String("term", c.Key()))
}

func (a *Attention) reset() {
	a.concepts.Clear()
	a.cache.Clear()
	clear(a.inFlight)
}

func (a *Attention) close() {
	if a.pool != nil {
		a.pool.close()
	}
}
