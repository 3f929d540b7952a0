package events

import (
	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/task"
)

// Event is a typed payload. Each payload type belongs to exactly one Kind.
type Event interface {
	Kind() Kind
}

// Reason explains why a task was added or removed.
type Reason string

const (
	Perceived Reason = "Perceived"
	Neglected Reason = "Neglected"
	Executed  Reason = "Executed"
	Ignored   Reason = "Ignored"
	Displaced Reason = "Displaced novel task"
	Completed Reason = "Completed"
	Derived   Reason = "Derived"
)

// CycleStarted is emitted at the top of every cycle.
type CycleStarted struct {
	Time int64
}

// CycleEnded is emitted after all work of a cycle, before the clock moves.
type CycleEnded struct {
	Time int64
}

// FrameStarted is emitted by the runner before a frame of cycles.
type FrameStarted struct {
	Frame int64
}

// FrameEnded is emitted by the runner after a frame of cycles.
type FrameEnded struct {
	Frame  int64
	Cycles int
}

// ResetStarted is emitted before the memory is cleared.
type ResetStarted struct{}

// ResetEnded is emitted after the memory is cleared.
type ResetEnded struct{}

// TaskAdded is emitted when a task enters the new-task queue.
type TaskAdded struct {
	Task   *task.Task
	Reason Reason
}

// TaskRemoved is emitted when a task leaves the system.
type TaskRemoved struct {
	Task   *task.Task
	Reason Reason
}

// TaskDerived is emitted for every task returned by the inference engine.
type TaskDerived struct {
	Task   *task.Task
	Parent *task.Task
}

// TaskProcessed is emitted when a task is handed to immediate processing.
type TaskProcessed struct {
	Task    *task.Task
	Concept *concept.Concept
}

// ConceptCreated is emitted when a concept is formed.
type ConceptCreated struct {
	Concept *concept.Concept
}

// ConceptFired is emitted when a concept is selected for reasoning.
type ConceptFired struct {
	Concept *concept.Concept
}

// ConceptForgotten is emitted when a concept leaves the concept bag. Cached
// is true when it was moved to the cache rather than destroyed.
type ConceptForgotten struct {
	Concept *concept.Concept
	Cached  bool
}

// ConceptRemembered is emitted when a cached concept is restored.
type ConceptRemembered struct {
	Concept *concept.Concept
}

// SucceedingEventInduced is emitted when an event is considered for temporal
// induction against short-term memory.
type SucceedingEventInduced struct {
	Event    *task.Task
	Compared int
}

// InputReceived is emitted for every item pulled from the input source.
type InputReceived struct {
	Input task.Abstract
}

// OutputReported is emitted for tasks loud enough for the current volume.
type OutputReported struct {
	Task *task.Task
}

// Echoed carries an Echo command's message.
type Echoed struct {
	Channel string
	Message string
}

// ErrorRaised reports a problem that was handled without stopping the cycle.
type ErrorRaised struct {
	Err error
}

func (CycleStarted) Kind() Kind           { return CycleStart }
func (CycleEnded) Kind() Kind             { return CycleEnd }
func (FrameStarted) Kind() Kind           { return FrameStart }
func (FrameEnded) Kind() Kind             { return FrameEnd }
func (ResetStarted) Kind() Kind           { return ResetStart }
func (ResetEnded) Kind() Kind             { return ResetEnd }
func (TaskAdded) Kind() Kind              { return TaskAdd }
func (TaskRemoved) Kind() Kind            { return TaskRemove }
func (TaskDerived) Kind() Kind            { return TaskDerive }
func (TaskProcessed) Kind() Kind          { return TaskImmediateProcess }
func (ConceptCreated) Kind() Kind         { return ConceptNew }
func (ConceptFired) Kind() Kind           { return ConceptFire }
func (ConceptForgotten) Kind() Kind       { return ConceptForget }
func (ConceptRemembered) Kind() Kind      { return ConceptRemember }
func (SucceedingEventInduced) Kind() Kind { return InduceSucceedingEvent }
func (InputReceived) Kind() Kind          { return Input }
func (OutputReported) Kind() Kind         { return Output }
func (Echoed) Kind() Kind                 { return Echo }
func (ErrorRaised) Kind() Kind            { return Error }
