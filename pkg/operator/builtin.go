package operator

import (
	"context"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

// Self is the term the system uses to talk about itself.
var Self = term.Atom("SELF")

const feelingConfidence = 0.9

// FeelBusy reports how busy the memory is as <SELF --> [busy]>.
func FeelBusy() *Operator {
	return &Operator{
		Name: "^feelBusy",
		Caps: Feeling | Mental,
		Exec: func(_ context.Context, h Host, _ []term.Term) ([]Feedback, error) {
			return []Feedback{feeling("busy", h.Busy())}, nil
		},
	}
}

// FeelHappy reports how satisfied the memory is as <SELF --> [happy]>.
func FeelHappy() *Operator {
	return &Operator{
		Name: "^feelHappy",
		Caps: Feeling | Mental,
		Exec: func(_ context.Context, h Host, _ []term.Term) ([]Feedback, error) {
			return []Feedback{feeling("happy", h.Happy())}, nil
		},
	}
}

// Hesitate gives the concepts of its arguments another chance to be selected.
func Hesitate() *Operator {
	return &Operator{
		Name: "^hesitate",
		Caps: Mental,
		Exec: func(_ context.Context, h Host, args []term.Term) ([]Feedback, error) {
			for _, a := range args {
				h.Activate(a, budget.New(task.DefaultJudgmentPriority, task.DefaultJudgmentDurability, 0.5))
			}
			return nil, nil
		},
	}
}

// RegisterBuiltins adds the built-in operators to r.
func RegisterBuiltins(r *Registry) error {
	for _, op := range []*Operator{FeelBusy(), FeelHappy(), Hesitate()} {
		if err := r.Register(op); err != nil {
			return err
		}
	}
	return nil
}

func feeling(property string, level float64) Feedback {
	return Feedback{
		Term:  term.Statement(Self, "-->", term.Compound("[]", term.Atom(property))),
		Truth: task.NewTruth(level, feelingConfidence),
	}
}
