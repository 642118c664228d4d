package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/simkernel/internal/ir"
)

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the model root, with optional top-level fields:
//
//	name: "village"
//	relationship: knows: {source: "person", target: "person", cardinality: "many_to_many"}
//	entity: alice: {
//		type: "person"
//		state: age: 30
//		function: aging: {
//			active: true
//			process: grow: {behavior: "increment", args: key: "age"}
//		}
//	}
//	relation: [{name: "knows", from: "alice", to: "bob"}]
//
// Entities, functions and processes keep their declaration order. An entity
// takes its label as name unless it sets name explicitly, which allows
// several entities to share a name.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	var err error
	spec.Relationships, err = parseRelationships(v)
	if err != nil {
		return nil, err
	}
	spec.Entities, err = parseEntities(v)
	if err != nil {
		return nil, err
	}
	spec.Relations, err = parseRelations(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func parseRelationships(v cue.Value) ([]ir.RelationshipSpec, error) {
	relVal := v.LookupPath(cue.ParsePath("relationship"))
	if !relVal.Exists() {
		return nil, nil
	}

	iter, err := relVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.RelationshipSpec
	for iter.Next() {
		name := iter.Label()
		field := "relationship." + name
		def := ir.RelationshipSpec{Name: name}

		if def.Source, err = requiredString(iter.Value(), "source", field); err != nil {
			return nil, err
		}
		if def.Target, err = requiredString(iter.Value(), "target", field); err != nil {
			return nil, err
		}
		if def.Cardinality, err = requiredString(iter.Value(), "cardinality", field); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func parseEntities(v cue.Value) ([]ir.EntitySpec, error) {
	entVal := v.LookupPath(cue.ParsePath("entity"))
	if !entVal.Exists() {
		return nil, nil
	}

	iter, err := entVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.EntitySpec
	for iter.Next() {
		label := iter.Label()
		field := "entity." + label
		ev := iter.Value()

		e := ir.EntitySpec{Name: label}
		if name, ok, err := optionalString(ev, "name"); err != nil {
			return nil, err
		} else if ok {
			e.Name = name
		}
		if e.Type, err = requiredString(ev, "type", field); err != nil {
			return nil, err
		}
		if e.State, err = parseValues(ev, "state", field); err != nil {
			return nil, err
		}
		if e.Functions, err = parseFunctions(ev, field); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func parseFunctions(v cue.Value, parent string) ([]ir.FunctionSpec, error) {
	fnVal := v.LookupPath(cue.ParsePath("function"))
	if !fnVal.Exists() {
		return nil, nil
	}

	iter, err := fnVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.FunctionSpec
	for iter.Next() {
		name := iter.Label()
		field := parent + ".function." + name
		fv := iter.Value()

		f := ir.FunctionSpec{Name: name}
		activeVal := fv.LookupPath(cue.ParsePath("active"))
		if activeVal.Exists() {
			if f.Active, err = activeVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if f.Parameters, err = parseValues(fv, "parameters", field); err != nil {
			return nil, err
		}
		if f.Processes, err = parseProcesses(fv, field); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func parseProcesses(v cue.Value, parent string) ([]ir.ProcessSpec, error) {
	procVal := v.LookupPath(cue.ParsePath("process"))
	if !procVal.Exists() {
		return nil, nil
	}

	iter, err := procVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.ProcessSpec
	for iter.Next() {
		name := iter.Label()
		field := parent + ".process." + name
		pv := iter.Value()

		p := ir.ProcessSpec{Name: name}
		if p.Behavior, err = requiredString(pv, "behavior", field); err != nil {
			return nil, err
		}

		argsVal := pv.LookupPath(cue.ParsePath("args"))
		if argsVal.Exists() {
			raw, err := toGo(argsVal)
			if err != nil {
				return nil, err
			}
			args, ok := raw.(map[string]any)
			if !ok {
				return nil, &CompileError{Field: field + ".args", Message: "args must be a struct", Pos: argsVal.Pos()}
			}
			p.Args = args
		}

		condVal := pv.LookupPath(cue.ParsePath("condition"))
		if condVal.Exists() {
			if p.Condition, err = parseCondition(condVal, field+".condition"); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func parseCondition(v cue.Value, field string) (*ir.ConditionSpec, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "condition must be a struct", Pos: v.Pos()}
	}

	cond := &ir.ConditionSpec{}
	fields := []struct {
		key string
		dst *string
	}{
		{"kind", &cond.Kind},
		{"scope", &cond.Scope},
		{"key", &cond.Key},
		{"op", &cond.Op},
	}
	for _, f := range fields {
		s, ok, err := optionalString(v, f.key)
		if err != nil {
			return nil, err
		}
		if ok {
			*f.dst = s
		}
	}

	var err error

	everyVal := v.LookupPath(cue.ParsePath("every"))
	if everyVal.Exists() {
		if cond.Every, err = everyVal.Int64(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if valueVal.Exists() {
		if cond.Value, err = toGo(valueVal); err != nil {
			return nil, err
		}
	}
	return cond, nil
}

func parseRelations(v cue.Value) ([]ir.RelationSpec, error) {
	relVal := v.LookupPath(cue.ParsePath("relation"))
	if !relVal.Exists() {
		return nil, nil
	}

	iter, err := relVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.RelationSpec
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("relation[%d]", i)
		rv := iter.Value()

		r := ir.RelationSpec{}
		if r.Name, err = requiredString(rv, "name", field); err != nil {
			return nil, err
		}
		if r.From, err = requiredString(rv, "from", field); err != nil {
			return nil, err
		}
		if r.To, err = requiredString(rv, "to", field); err != nil {
			return nil, err
		}
		if r.Metadata, err = parseValues(rv, "metadata", field); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// parseValues reads an optional flat struct of typed values.
func parseValues(v cue.Value, key, parent string) (ir.Values, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return nil, nil
	}
	raw, err := toGo(val)
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: parent + "." + key, Message: "must be a struct", Pos: val.Pos()}
	}
	values, err := ir.ValuesFrom(m)
	if err != nil {
		return nil, &CompileError{Field: parent + "." + key, Message: err.Error(), Pos: val.Pos()}
	}
	return values, nil
}

func requiredString(v cue.Value, key, parent string) (string, error) {
	s, ok, err := optionalString(v, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CompileError{
			Field:   parent + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, key string) (string, bool, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", false, nil
	}
	s, err := val.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// toGo converts a concrete CUE value into plain Go values: string, int64,
// float64, bool, []any and map[string]any.
func toGo(v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	}

	var (
		out any
		err error
	)
	switch v.IncompleteKind() {
	case cue.StringKind:
		out, err = v.String()
	case cue.IntKind:
		out, err = v.Int64()
	case cue.FloatKind, cue.NumberKind:
		out, err = v.Float64()
	case cue.BoolKind:
		out, err = v.Bool()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := []any{}
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		fields := map[string]any{}
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			fields[iter.Label()] = elem
		}
		return fields, nil
	default:
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	if err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
