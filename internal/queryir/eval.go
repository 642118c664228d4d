package queryir

import (
	"strings"

	"github.com/roach88/simkernel/internal/ir"
)

// Subject is the read-only surface a predicate is evaluated against.
type Subject interface {
	EntityType() string
	EntityName() string
	StateValue(key string) (ir.Value, bool)
	HasRelation(name string) bool
}

// Evaluate reports whether s satisfies p. A nil predicate matches everything;
// an unknown predicate type matches nothing.
func Evaluate(p Predicate, s Subject) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case TypeIs:
		return s.EntityType() == pred.Type
	case *TypeIs:
		return s.EntityType() == pred.Type
	case NameIs:
		return s.EntityName() == pred.Name
	case *NameIs:
		return s.EntityName() == pred.Name
	case NamePrefix:
		return strings.HasPrefix(s.EntityName(), pred.Prefix)
	case *NamePrefix:
		return strings.HasPrefix(s.EntityName(), pred.Prefix)
	case StateEquals:
		return evalStateEquals(pred, s)
	case *StateEquals:
		return evalStateEquals(*pred, s)
	case StateCompare:
		return evalStateCompare(pred, s)
	case *StateCompare:
		return evalStateCompare(*pred, s)
	case HasRelation:
		return s.HasRelation(pred.Name)
	case *HasRelation:
		return s.HasRelation(pred.Name)
	case And:
		return evalAnd(pred, s)
	case *And:
		return evalAnd(*pred, s)
	default:
		return false
	}
}

func evalStateEquals(pred StateEquals, s Subject) bool {
	v, ok := s.StateValue(pred.Key)
	return ok && ir.Equal(v, pred.Value)
}

func evalStateCompare(pred StateCompare, s Subject) bool {
	v, ok := s.StateValue(pred.Key)
	if !ok {
		return false
	}
	return CompareValues(pred.Op, v, pred.Value)
}

// CompareValues applies op to (left, right). Eq and Ne use kind-strict
// equality except between numbers, which compare numerically. Ordering
// operators require comparable kinds and return false otherwise.
func CompareValues(op CompareOp, left, right ir.Value) bool {
	c, ok := ir.Compare(left, right)
	switch op {
	case OpEq:
		if ok {
			return c == 0
		}
		return ir.Equal(left, right)
	case OpNe:
		if ok {
			return c != 0
		}
		return !ir.Equal(left, right)
	case OpLt:
		return ok && c < 0
	case OpLe:
		return ok && c <= 0
	case OpGt:
		return ok && c > 0
	case OpGe:
		return ok && c >= 0
	default:
		return false
	}
}

func evalAnd(and And, s Subject) bool {
	for _, sub := range and.Predicates {
		if !Evaluate(sub, s) {
			return false
		}
	}
	return true
}
