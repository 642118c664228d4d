package queryir

import "github.com/roach88/simkernel/internal/ir"

// Predicate represents a filter condition over entities.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - TypeIs: entity type equals a tag
//   - NameIs: entity name equals a string
//   - NamePrefix: entity name starts with a prefix
//   - StateEquals: a state entry equals a literal value
//   - StateCompare: a state entry compares against a literal value
//   - HasRelation: the entity has at least one live relation of a name
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// TypeIs matches entities whose type tag equals Type.
type TypeIs struct {
	Type string
}

func (TypeIs) predicateNode() {}

// NameIs matches entities whose name equals Name exactly.
type NameIs struct {
	Name string
}

func (NameIs) predicateNode() {}

// NamePrefix matches entities whose name starts with Prefix.
// An empty prefix matches every entity.
type NamePrefix struct {
	Prefix string
}

func (NamePrefix) predicateNode() {}

// StateEquals matches entities whose state holds Key with a value equal to
// Value. Equality is kind-strict: Int(1) does not equal Float(1).
type StateEquals struct {
	Key   string
	Value ir.Value
}

func (StateEquals) predicateNode() {}

// CompareOp is the operator of a StateCompare predicate.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
)

// Valid reports whether op is a known operator.
func (op CompareOp) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// StateCompare matches entities whose state entry Key compares against
// Value with Op. Numbers compare across Int and Float. Entities missing the
// key, or holding a value of an incomparable kind, never match.
type StateCompare struct {
	Key   string
	Op    CompareOp
	Value ir.Value
}

func (StateCompare) predicateNode() {}

// HasRelation matches entities with at least one live relation named Name.
type HasRelation struct {
	Name string
}

func (HasRelation) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is vacuously true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
