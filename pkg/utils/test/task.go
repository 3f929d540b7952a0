package testutils

import (
	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

// NewTestTask creates an eternal input judgment about an atom.
func NewTestTask(name string, priority float64) *task.Task {
	s := task.Sentence{
		Term:        term.Atom(name),
		Punctuation: task.Judgment,
		Truth:       task.NewTruth(1, 0.9),
		Stamp:       task.Stamp{Occurrence: task.Eternal},
	}
	return task.NewInput(s, budget.New(priority, 0.8, 0.5))
}
