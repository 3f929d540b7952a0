// Package task provides sentences, stamps and the schedulable Task built on
// them, plus the non-task commands that can arrive on the input channel.
package task

import (
	"fmt"

	"github.com/papercomputeco/reckon/pkg/arena"
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/term"
)

// Default budgets per sentence type.
const (
	DefaultJudgmentPriority   = 0.8
	DefaultJudgmentDurability = 0.8
	DefaultQuestionPriority   = 0.9
	DefaultQuestionDurability = 0.9
	DefaultGoalPriority       = 0.9
	DefaultGoalDurability     = 0.9
)

// DefaultBudget returns the budget an input sentence gets when none is given.
func DefaultBudget(s *Sentence) budget.Budget {
	switch s.Punctuation {
	case Question, Quest:
		return budget.New(DefaultQuestionPriority, DefaultQuestionDurability, 1)
	case Goal:
		return budget.New(DefaultGoalPriority, DefaultGoalDurability, s.Truth.Quality())
	default:
		return budget.New(DefaultJudgmentPriority, DefaultJudgmentDurability, s.Truth.Quality())
	}
}

// Task is a sentence scheduled for processing.
//
// A task lives in the memory's arena once admitted. Anything that refers to
// it afterwards (task links, child tasks) holds its Handle.
type Task struct {
	Sentence Sentence

	budget budget.Budget
	key    string

	handle arena.Handle
	parent arena.Handle

	// cause is the operation whose execution produced this task.
	cause term.Term
	input bool
}

// New creates a task. The sentence is copied.
func New(s Sentence, b budget.Budget) *Task {
	return &Task{
		Sentence: s,
		budget:   b,
		key:      s.Key(),
	}
}

// NewInput creates a task marked as coming from outside the system.
func NewInput(s Sentence, b budget.Budget) *Task {
	t := New(s, b)
	t.input = true
	return t
}

// Settle stamps a task that was built outside the memory. See Stamp.Settle.
func (t *Task) Settle(serial, now int64, duration int) {
	t.Sentence.Stamp.Settle(serial, now, duration)
	t.key = t.Sentence.Key()
}

// Key identifies the task by sentence content.
func (t *Task) Key() string { return t.key }

// Budget returns the task's mutable budget.
func (t *Task) Budget() *budget.Budget { return &t.budget }

// Term is shorthand for t.Sentence.Term.
func (t *Task) Term() term.Term { return t.Sentence.Term }

// Handle is the task's arena handle, zero until admitted.
func (t *Task) Handle() arena.Handle { return t.handle }

// SetHandle records the arena handle assigned at admission.
func (t *Task) SetHandle(h arena.Handle) { t.handle = h }

// Parent is the handle of the task this one was derived from, if any. The
// parent may have been removed since.
func (t *Task) Parent() arena.Handle { return t.parent }

// SetParent records the parent task.
func (t *Task) SetParent(h arena.Handle) { t.parent = h }

// IsInput reports whether the task came from outside the system.
func (t *Task) IsInput() bool { return t.input }

// Cause is the operation whose execution produced this task.
func (t *Task) Cause() (term.Term, bool) { return t.cause, !t.cause.IsZero() }

// SetCause records the operation that produced this task.
func (t *Task) SetCause(op term.Term) { t.cause = op }

// IsEvent reports whether the task describes something at a point in time.
func (t *Task) IsEvent() bool { return !t.Sentence.IsEternal() }

// InductionCandidate reports whether the task can take part in temporal
// induction over short-term memory: a judgment about an event that either
// came from outside or was produced by executing an operation.
func (t *Task) InductionCandidate() bool {
	if !t.Sentence.IsJudgment() || t.Sentence.IsEternal() {
		return false
	}
	_, caused := t.Cause()
	return t.input || caused
}

// IsOperationGoal reports whether the task asks for an operator to run.
func (t *Task) IsOperationGoal() bool {
	return t.Sentence.IsGoal() && t.Sentence.Term.IsOperation()
}

func (t *Task) String() string {
	return fmt.Sprintf("%s %s", t.budget, t.key)
}

func (*Task) abstract() {}
