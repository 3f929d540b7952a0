package concept

import (
	"github.com/papercomputeco/reckon/pkg/arena"
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/term"
)

// TaskLink points from a concept to a task in the memory's arena. The link
// does not own the task; the memory keeps the task alive while links to it
// exist.
type TaskLink struct {
	target arena.Handle
	key    string
	budget budget.Budget
}

// NewTaskLink links to the task behind target, identified by its task key.
func NewTaskLink(target arena.Handle, key string, b budget.Budget) *TaskLink {
	return &TaskLink{target: target, key: key, budget: b}
}

func (l *TaskLink) Key() string             { return l.key }
func (l *TaskLink) Budget() *budget.Budget { return &l.budget }

// Target is the handle of the linked task.
func (l *TaskLink) Target() arena.Handle { return l.target }

// TermLink points from a concept to a related term.
type TermLink struct {
	target term.Term
	budget budget.Budget
}

// NewTermLink links to target.
func NewTermLink(target term.Term, b budget.Budget) *TermLink {
	return &TermLink{target: target, budget: b}
}

func (l *TermLink) Key() string             { return l.target.Name() }
func (l *TermLink) Budget() *budget.Budget { return &l.budget }

// Target is the linked term.
func (l *TermLink) Target() term.Term { return l.target }
