// Package concept provides the per-term reasoning unit. A Concept owns two
// bags, one of links to tasks and one of links to related terms, and is the
// local scheduler for what gets reasoned about when it fires.
//
// A Concept is not safe for concurrent use. The memory guarantees that at
// most one goroutine touches a given concept at a time.
package concept

import (
	"fmt"

	"github.com/papercomputeco/reckon/pkg/arena"
	"github.com/papercomputeco/reckon/pkg/bag"
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/term"
)

// Config sizes the bags of new concepts.
type Config struct {
	TaskLinkLevels   int
	TaskLinkCapacity int
	TermLinkLevels   int
	TermLinkCapacity int

	// BagOptions are passed to both link bags.
	BagOptions []bag.Option
}

// Concept is the unit of attention for one term.
type Concept struct {
	term    term.Term
	budget  budget.Budget
	created int64

	taskLinks *bag.Bag[string, *TaskLink]
	termLinks *bag.Bag[string, *TermLink]
}

// New creates a concept for t with an initial budget.
func New(t term.Term, b budget.Budget, created int64, c Config) (*Concept, error) {
	taskLinks, err := bag.New[string, *TaskLink](c.TaskLinkLevels, c.TaskLinkCapacity, c.BagOptions...)
	if err != nil {
		return nil, fmt.Errorf("task link bag: %w", err)
	}
	termLinks, err := bag.New[string, *TermLink](c.TermLinkLevels, c.TermLinkCapacity, c.BagOptions...)
	if err != nil {
		return nil, fmt.Errorf("term link bag: %w", err)
	}

	return &Concept{
		term:      t,
		budget:    b,
		created:   created,
		taskLinks: taskLinks,
		termLinks: termLinks,
	}, nil
}

// Key is the canonical name of the concept's term.
func (c *Concept) Key() string { return c.term.Name() }

func (c *Concept) Budget() *budget.Budget { return &c.budget }

// Term is the term this concept stands for.
func (c *Concept) Term() term.Term { return c.term }

// Created is the memory time at which the concept was formed.
func (c *Concept) Created() int64 { return c.created }

// TaskLinks exposes the task link bag for inspection.
func (c *Concept) TaskLinks() *bag.Bag[string, *TaskLink] { return c.taskLinks }

// TermLinks exposes the term link bag for inspection.
func (c *Concept) TermLinks() *bag.Bag[string, *TermLink] { return c.termLinks }

// LinkTask adds a link to the task behind target. If a link with the same key
// already exists, its budget is strengthened and linked is false: the caller
// must not take a new reference to target. When adding the link overflows
// the bag, the displaced link is returned so the caller can drop its
// reference.
func (c *Concept) LinkTask(target arena.Handle, key string, b budget.Budget) (linked bool, evicted *TaskLink, err error) {
	if existing, ok := c.taskLinks.TakeOut(key); ok {
		existing.Budget().Merge(b)
		ev, dropped, err := c.taskLinks.Put(existing)
		if dropped {
			evicted = ev
		}
		return false, evicted, err
	}

	ev, dropped, err := c.taskLinks.Put(NewTaskLink(target, key, b))
	if err != nil {
		return false, nil, err
	}
	if dropped {
		evicted = ev
	}
	return true, evicted, nil
}

// LinkTerm adds or strengthens a link to target. A displaced link is simply
// forgotten.
func (c *Concept) LinkTerm(target term.Term, b budget.Budget) error {
	_, _, err := c.termLinks.Put(NewTermLink(target, b))
	return err
}

// TakeTaskLink removes the next task link to reason about.
func (c *Concept) TakeTaskLink() (*TaskLink, bool) {
	return c.taskLinks.TakeNext()
}

// TakeTermLink removes the next term link to reason about.
func (c *Concept) TakeTermLink() (*TermLink, bool) {
	return c.termLinks.TakeNext()
}

// ReturnTaskLink decays l with forget and puts it back. A link that no longer
// fits is returned as evicted; it can be l itself.
func (c *Concept) ReturnTaskLink(l *TaskLink, forget func(*budget.Budget)) (*TaskLink, bool) {
	ev, ok, _ := c.taskLinks.PutBack(l, forget)
	return ev, ok
}

// ReturnTermLink decays l with forget and puts it back.
func (c *Concept) ReturnTermLink(l *TermLink, forget func(*budget.Budget)) {
	_, _, _ = c.termLinks.PutBack(l, forget)
}

// Activate strengthens the concept's budget with an incoming activation.
func (c *Concept) Activate(b budget.Budget) {
	c.budget.Activate(b)
}

// DrainTaskLinks removes every task link and returns them, for releasing
// task references when the concept is destroyed.
func (c *Concept) DrainTaskLinks() []*TaskLink {
	out := make([]*TaskLink, 0, c.taskLinks.Size())
	for l := range c.taskLinks.All() {
		out = append(out, l)
	}
	c.taskLinks.Clear()
	return out
}

func (c *Concept) String() string {
	return fmt.Sprintf("%s %s", c.budget, c.term)
}
