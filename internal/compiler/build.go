package compiler

import (
	"fmt"

	"github.com/roach88/simkernel/internal/behavior"
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

// Build validates spec and instantiates a live model from it.
//
// Setup order: relationships are defined, entities are created in spec
// order with their functions and processes registered in the same order,
// then relations are added. A nil registry means the built-in behaviors.
// Validation warnings do not fail the build; errors return
// ValidationErrors.
func Build(spec *ir.ModelSpec, behaviors *behavior.Registry, opts ...kernel.Option) (*kernel.Model, error) {
	if behaviors == nil {
		behaviors = behavior.Builtins()
	}

	var failures ValidationErrors
	for _, e := range Validate(spec, behaviors) {
		if !IsWarning(e.Code) {
			failures = append(failures, e)
		}
	}
	if len(failures) > 0 {
		return nil, failures
	}

	m := kernel.NewModel(opts...)

	for _, rel := range spec.Relationships {
		card, err := kernel.ParseCardinality(rel.Cardinality)
		if err != nil {
			return nil, err
		}
		if err := m.DefineRelationship(rel.Name, kernel.EntityType(rel.Source), kernel.EntityType(rel.Target), card); err != nil {
			return nil, fmt.Errorf("define relationship %q: %w", rel.Name, err)
		}
	}

	for _, es := range spec.Entities {
		e := m.CreateEntity(es.Name, kernel.EntityType(es.Type))
		for k, v := range es.State {
			e.State().Set(k, ir.CloneValue(v))
		}
		for _, fs := range es.Functions {
			f, procs, err := buildFunction(fs, behaviors)
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", es.Name, err)
			}
			if err := m.AddFunction(e.ID(), f); err != nil {
				return nil, err
			}
			for _, p := range procs {
				m.AddProcess(p)
			}
		}
	}

	for _, rs := range spec.Relations {
		from, ok := m.EntityByName(rs.From)
		if !ok {
			return nil, fmt.Errorf("relation %q: %w", rs.Name, kernel.ErrUnresolvedEndpoint)
		}
		to, ok := m.EntityByName(rs.To)
		if !ok {
			return nil, fmt.Errorf("relation %q: %w", rs.Name, kernel.ErrUnresolvedEndpoint)
		}
		r, err := m.AddRelation(rs.Name, from.ID(), to.ID())
		if err != nil {
			return nil, fmt.Errorf("relation %q from %q to %q: %w", rs.Name, rs.From, rs.To, err)
		}
		for k, v := range rs.Metadata {
			r.Metadata().Set(k, ir.CloneValue(v))
		}
	}

	return m, nil
}

func buildFunction(fs ir.FunctionSpec, behaviors *behavior.Registry) (*kernel.Function, []*kernel.Process, error) {
	f := kernel.NewFunction(fs.Name)
	for k, v := range fs.Parameters {
		f.Parameters().Set(k, ir.CloneValue(v))
	}
	if fs.Active {
		f.Activate()
	}

	procs := make([]*kernel.Process, 0, len(fs.Processes))
	for _, ps := range fs.Processes {
		action, err := behaviors.Action(ps.Behavior, ps.Args)
		if err != nil {
			return nil, nil, fmt.Errorf("function %q process %q: %w", fs.Name, ps.Name, err)
		}
		cond, err := behavior.Condition(ps.Condition)
		if err != nil {
			return nil, nil, fmt.Errorf("function %q process %q: %w", fs.Name, ps.Name, err)
		}
		p := kernel.NewConditionalProcess(ps.Name, cond, action)
		f.AddProcess(p)
		procs = append(procs, p)
	}
	return f, procs, nil
}
