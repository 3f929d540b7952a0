// Package eventstream publishes memory lifecycle events to external
// consumers in a transport-neutral JSON shape.
package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	EventTypeTaskAdded        = "reckon.task.added"
	EventTypeTaskRemoved      = "reckon.task.removed"
	EventTypeConceptCreated   = "reckon.concept.created"
	EventTypeConceptForgotten = "reckon.concept.forgotten"
	EventTypeOutput           = "reckon.output"
)

// LifecycleEvent is a transport-neutral payload for one memory event.
type LifecycleEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Memory        MemoryMeta   `json:"memory"`
	Reason        string       `json:"reason,omitempty"`
	Task          *TaskMeta    `json:"task,omitempty"`
	Concept       *ConceptMeta `json:"concept,omitempty"`
}

// EventSource identifies the emitting instance.
type EventSource struct {
	Instance string `json:"instance"`
	Project  string `json:"project,omitempty"`
}

// MemoryMeta is the memory clock when the event fired.
type MemoryMeta struct {
	Time  int64 `json:"time"`
	Cycle int64 `json:"cycle"`
}

// TaskMeta summarizes a task.
type TaskMeta struct {
	Key         string  `json:"key"`
	Term        string  `json:"term"`
	Punctuation string  `json:"punctuation"`
	Priority    float64 `json:"priority"`
	Durability  float64 `json:"durability"`
	Quality     float64 `json:"quality"`
	Input       bool    `json:"input"`
}

// ConceptMeta summarizes a concept.
type ConceptMeta struct {
	Term     string  `json:"term"`
	Priority float64 `json:"priority"`
	Cached   bool    `json:"cached,omitempty"`
}

// Key is the partitioning key: the term the event is about, so events for
// one concept stay ordered.
func (e *LifecycleEvent) Key() string {
	switch {
	case e.Concept != nil:
		return e.Concept.Term
	case e.Task != nil:
		return e.Task.Term
	default:
		return e.EventType
	}
}
