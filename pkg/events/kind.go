package events

import "fmt"

// Kind is the closed set of event kinds. Every Event reports exactly one.
type Kind int

const (
	CycleStart Kind = iota
	CycleEnd
	FrameStart
	FrameEnd
	ResetStart
	ResetEnd
	TaskAdd
	TaskRemove
	TaskDerive
	TaskImmediateProcess
	ConceptNew
	ConceptFire
	ConceptForget
	ConceptRemember
	InduceSucceedingEvent
	Input
	Output
	Echo
	Error

	numKinds
)

var kindNames = [numKinds]string{
	CycleStart:            "cycle_start",
	CycleEnd:              "cycle_end",
	FrameStart:            "frame_start",
	FrameEnd:              "frame_end",
	ResetStart:            "reset_start",
	ResetEnd:              "reset_end",
	TaskAdd:               "task_add",
	TaskRemove:            "task_remove",
	TaskDerive:            "task_derive",
	TaskImmediateProcess:  "task_immediate_process",
	ConceptNew:            "concept_new",
	ConceptFire:           "concept_fire",
	ConceptForget:         "concept_forget",
	ConceptRemember:       "concept_remember",
	InduceSucceedingEvent: "induce_succeeding_event",
	Input:                 "input",
	Output:                "output",
	Echo:                  "echo",
	Error:                 "error",
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k >= 0 && k < numKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every declared kind in order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind maps a kind name such as "task_add" back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
