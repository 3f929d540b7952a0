// Package term provides the symbolic expressions concepts are named after.
//
// A Term is opaque to the attention core: it only needs a canonical name for
// structural equality and for keying concepts. Composition rules belong to the
// inference engine.
package term

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTerm is returned when decoding a term with neither a name nor an
// operator.
var ErrEmptyTerm = errors.New("term: empty term")

// Term is an atom or an operator applied to component terms. Terms are
// immutable values.
type Term struct {
	name       string
	op         string
	components []Term
}

// Atom returns an atomic term.
func Atom(name string) Term {
	return Term{name: name}
}

// Compound returns op applied to components.
func Compound(op string, components ...Term) Term {
	comps := make([]Term, len(components))
	copy(comps, components)
	return Term{
		name:       render(op, comps),
		op:         op,
		components: comps,
	}
}

// Statement returns a binary relation such as <subject --> predicate>.
func Statement(subject Term, copula string, predicate Term) Term {
	return Compound(copula, subject, predicate)
}

// Operation returns an operator invocation. The operator name carries its
// leading caret, for example "^feelBusy".
func Operation(operator string, args ...Term) Term {
	if !strings.HasPrefix(operator, "^") {
		operator = "^" + operator
	}
	return Compound(operator, args...)
}

// Name is the canonical rendering of the term. Two terms are structurally
// equal exactly when their names are equal.
func (t Term) Name() string { return t.name }

// Operator returns the operator of a compound, or "" for an atom.
func (t Term) Operator() string { return t.op }

// Components returns the component terms of a compound.
func (t Term) Components() []Term {
	out := make([]Term, len(t.components))
	copy(out, t.components)
	return out
}

// IsZero reports whether t is the zero term.
func (t Term) IsZero() bool { return t.name == "" }

// IsAtom reports whether t has no components and no operator.
func (t Term) IsAtom() bool { return t.op == "" }

// IsOperation reports whether t invokes an operator.
func (t Term) IsOperation() bool { return strings.HasPrefix(t.op, "^") }

// Equal reports structural equality.
func (t Term) Equal(other Term) bool { return t.name == other.name }

// Complexity counts the atoms and operators in t.
func (t Term) Complexity() int {
	n := 1
	for _, c := range t.components {
		n += c.Complexity()
	}
	return n
}

func (t Term) String() string { return t.name }

func render(op string, comps []Term) string {
	if isCopula(op) && len(comps) == 2 {
		return fmt.Sprintf("<%s %s %s>", comps[0].name, op, comps[1].name)
	}

	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(op)
	for _, c := range comps {
		sb.WriteByte(',')
		sb.WriteString(c.name)
	}
	sb.WriteByte(')')
	return sb.String()
}

func isCopula(op string) bool {
	switch op {
	case "-->", "<->", "==>", "<=>", "=/>", "=|>", "=\\>", "</>", "<|>":
		return true
	}
	return false
}

// wireTerm is the JSON shape of a compound term. Atoms are encoded as plain
// strings.
type wireTerm struct {
	Op   string `json:"op"`
	Args []Term `json:"args,omitempty"`
}

// MarshalJSON encodes atoms as strings and compounds as {"op":..,"args":[..]}.
func (t Term) MarshalJSON() ([]byte, error) {
	if t.IsAtom() {
		return json.Marshal(t.name)
	}
	return json.Marshal(wireTerm{Op: t.op, Args: t.components})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Term) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name == "" {
			return ErrEmptyTerm
		}
		*t = Atom(name)
		return nil
	}

	var w wireTerm
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding term: %w", err)
	}
	if w.Op == "" {
		return ErrEmptyTerm
	}
	*t = Compound(w.Op, w.Args...)
	return nil
}
