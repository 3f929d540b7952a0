package inference

import (
	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/task"
)

// Stage names a point in a derivation.
type Stage string

const (
	StageFire    Stage = "fire"
	StageDerive  Stage = "derive"
	StageInduce  Stage = "induce"
	StageProcess Stage = "process"
)

// TracePoint describes one step of a derivation.
type TracePoint struct {
	Stage   Stage
	Concept *concept.Concept
	Task    *task.Task

	// Derived is set for StageDerive and StageInduce.
	Derived *task.Task

	// Rule is the engine's name for the rule that produced Derived.
	Rule string
}

// TraceHook receives trace points. It is called synchronously on the
// goroutine doing the derivation and must not block.
type TraceHook func(TracePoint)

// Emit calls h if it is set.
func (h TraceHook) Emit(p TracePoint) {
	if h != nil {
		h(p)
	}
}
