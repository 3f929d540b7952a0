// Package inference defines the narrow interfaces through which the memory
// hands work to an inference engine. The rules themselves live elsewhere.
package inference

import (
	"context"

	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/task"
)

// FireContext is everything an engine sees when a concept fires.
type FireContext struct {
	Concept  *concept.Concept
	TaskLink *concept.TaskLink
	Task     *task.Task

	// TermLink is nil when the concept has no term links.
	TermLink *concept.TermLink

	// Now is the memory time of the firing.
	Now int64

	// Serials hands out stamp serials for derived sentences.
	Serials *task.Serials

	// Trace, when set, is called at each stage of the derivation.
	Trace TraceHook
}

// Engine derives new tasks from a firing concept. It may be called from
// several goroutines at once, but never twice concurrently for the same
// concept.
type Engine interface {
	Fire(ctx context.Context, fc FireContext) []*task.Task
}

// InduceContext pairs a new event with an earlier one from short-term memory.
type InduceContext struct {
	Event    *task.Task
	Previous *task.Task

	// Stamp is the merged stamp a conclusion from the pair should carry.
	Stamp task.Stamp
	Now   int64

	Trace TraceHook
}

// Inducer is implemented by engines that support temporal induction over
// short-term memory. It is always called from the controller goroutine.
type Inducer interface {
	Induce(ctx context.Context, ic InduceContext) []*task.Task
}

// DirectProcessor is implemented by engines that react to a task as soon as
// it is linked into its concept, before any firing. It is always called from
// the controller goroutine.
type DirectProcessor interface {
	Process(ctx context.Context, c *concept.Concept, t *task.Task) []*task.Task
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, fc FireContext) []*task.Task

func (f EngineFunc) Fire(ctx context.Context, fc FireContext) []*task.Task {
	return f(ctx, fc)
}

// Nop derives nothing.
type Nop struct{}

func (Nop) Fire(context.Context, FireContext) []*task.Task { return nil }
