// Package operator provides the registry of operators a goal can ask the
// memory to execute.
//
// An operator is a plain record: a name, a set of capability tags and an
// execution function. Operators that need to look at or nudge the memory do
// so through the narrow Host interface.
package operator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/task"
	"github.com/papercomputeco/reckon/pkg/term"
)

var (
	// ErrInvalidOperator is returned when registering an operator without a
	// caret-prefixed name or without an execution function.
	ErrInvalidOperator = errors.New("operator: invalid operator")
)

// Capability tags what an operator touches.
type Capability uint8

const (
	// Mental operators act on the memory's own attention.
	Mental Capability = 1 << iota

	// Feeling operators report the memory's emotional state.
	Feeling

	// External operators act outside the system.
	External
)

// Has reports whether c includes every capability in other.
func (c Capability) Has(other Capability) bool { return c&other == other }

func (c Capability) String() string {
	var parts []string
	if c.Has(Mental) {
		parts = append(parts, "mental")
	}
	if c.Has(Feeling) {
		parts = append(parts, "feeling")
	}
	if c.Has(External) {
		parts = append(parts, "external")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Host is the view of the memory operators get while executing.
type Host interface {
	Time() int64
	Busy() float64
	Happy() float64

	// Activate strengthens the concept for t, creating it if the budget
	// allows. It reports whether a concept was activated.
	Activate(t term.Term, b budget.Budget) bool
}

// Feedback is a judgment an operator reports back after executing.
type Feedback struct {
	Term  term.Term
	Truth task.Truth
}

// Func executes an operator with the arguments of the operation term.
type Func func(ctx context.Context, h Host, args []term.Term) ([]Feedback, error)

// Operator is a named, executable operator record.
type Operator struct {
	Name string
	Caps Capability
	Exec Func
}

// Registry maps operator names to operators. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operator)}
}

// Register adds op, replacing any operator with the same name.
func (r *Registry) Register(op *Operator) error {
	if op == nil || op.Exec == nil || !strings.HasPrefix(op.Name, "^") || len(op.Name) < 2 {
		return fmt.Errorf("%w: %v", ErrInvalidOperator, op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name] = op
	return nil
}

// Lookup finds an operator by name. Unknown names are not an error.
func (r *Registry) Lookup(name string) (*Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Remove unregisters name and reports whether it was registered.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ops[name]
	delete(r.ops, name)
	return ok
}

// Names lists registered operator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (op *Operator) String() string {
	if op == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s[%s]", op.Name, op.Caps)
}
