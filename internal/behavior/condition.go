package behavior

import (
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
	"github.com/roach88/simkernel/internal/queryir"
)

// Condition kinds accepted in a ConditionSpec.
const (
	ConditionCompare = "compare"
	ConditionEvery   = "every"
	ConditionAlways  = "always"
)

// Scopes a compare condition can read from.
const (
	ScopeState     = "state"
	ScopeParameter = "parameter"
)

// Presence operators accepted alongside the queryir comparison operators.
const (
	OpExists = "exists"
	OpAbsent = "absent"
)

// Condition builds a kernel condition from its declarative form.
// A nil spec yields a nil condition, which the kernel treats as always true.
func Condition(spec *ir.ConditionSpec) (kernel.Condition, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Kind {
	case ConditionAlways:
		return kernel.Always, nil
	case ConditionEvery:
		if spec.Every <= 0 {
			return nil, fmt.Errorf("every must be positive, got %d", spec.Every)
		}
		every := spec.Every
		return kernel.ConditionFunc(func(ctx *kernel.ExecutionContext) bool {
			return ctx.Model.Step()%every == 0
		}), nil
	case "", ConditionCompare:
		return compareCondition(spec)
	default:
		return nil, fmt.Errorf("unknown condition kind %q", spec.Kind)
	}
}

func compareCondition(spec *ir.ConditionSpec) (kernel.Condition, error) {
	if spec.Key == "" {
		return nil, fmt.Errorf("compare condition requires a key")
	}

	var lookup func(ctx *kernel.ExecutionContext) (ir.Value, bool)
	key := spec.Key
	switch spec.Scope {
	case "", ScopeState:
		lookup = func(ctx *kernel.ExecutionContext) (ir.Value, bool) { return ctx.Entity.Get(key) }
	case ScopeParameter:
		lookup = func(ctx *kernel.ExecutionContext) (ir.Value, bool) { return ctx.Function.Parameter(key) }
	default:
		return nil, fmt.Errorf("unknown condition scope %q", spec.Scope)
	}

	switch spec.Op {
	case OpExists:
		return kernel.ConditionFunc(func(ctx *kernel.ExecutionContext) bool {
			_, ok := lookup(ctx)
			return ok
		}), nil
	case OpAbsent:
		return kernel.ConditionFunc(func(ctx *kernel.ExecutionContext) bool {
			_, ok := lookup(ctx)
			return !ok
		}), nil
	}

	op := queryir.CompareOp(spec.Op)
	if !op.Valid() {
		return nil, fmt.Errorf("unknown comparison operator %q", spec.Op)
	}
	want, err := ir.FromAny(spec.Value)
	if err != nil {
		return nil, fmt.Errorf("condition value: %w", err)
	}
	return kernel.ConditionFunc(func(ctx *kernel.ExecutionContext) bool {
		got, ok := lookup(ctx)
		return ok && queryir.CompareValues(op, got, want)
	}), nil
}
