package queryir

import "fmt"

// ValidationResult lists the problems found in a predicate tree.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	// Problems describes each malformed node, in traversal order.
	Problems []string
}

// Err returns the problems as a single error, or nil when the predicate is
// valid.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return fmt.Errorf("invalid predicate: %v", r.Problems)
}

// Validate checks a predicate tree for malformed nodes: empty keys or
// names, missing literal values, unknown operators and nil children.
//
// A nil root predicate is valid (no filter). Validate is a pure function.
func Validate(p Predicate) ValidationResult {
	v := &validator{problems: []string{}}
	if p != nil {
		v.validatePredicate(p)
	}
	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate inside a conjunction")
	case TypeIs:
		v.requireNonEmpty("TypeIs", "type", pred.Type)
	case *TypeIs:
		v.requireNonEmpty("TypeIs", "type", pred.Type)
	case NameIs:
		v.requireNonEmpty("NameIs", "name", pred.Name)
	case *NameIs:
		v.requireNonEmpty("NameIs", "name", pred.Name)
	case NamePrefix, *NamePrefix:
		// Empty prefix matches every entity.
	case StateEquals:
		v.validateStateEquals(pred)
	case *StateEquals:
		v.validateStateEquals(*pred)
	case StateCompare:
		v.validateStateCompare(pred)
	case *StateCompare:
		v.validateStateCompare(*pred)
	case HasRelation:
		v.requireNonEmpty("HasRelation", "name", pred.Name)
	case *HasRelation:
		v.requireNonEmpty("HasRelation", "name", pred.Name)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) requireNonEmpty(node, field, value string) {
	if value == "" {
		v.addProblem("%s: empty %s", node, field)
	}
}

func (v *validator) validateStateEquals(pred StateEquals) {
	v.requireNonEmpty("StateEquals", "key", pred.Key)
	if pred.Value == nil {
		v.addProblem("StateEquals %q: missing value", pred.Key)
	}
}

func (v *validator) validateStateCompare(pred StateCompare) {
	v.requireNonEmpty("StateCompare", "key", pred.Key)
	if pred.Value == nil {
		v.addProblem("StateCompare %q: missing value", pred.Key)
	}
	if !pred.Op.Valid() {
		v.addProblem("StateCompare %q: unknown operator %q", pred.Key, pred.Op)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
