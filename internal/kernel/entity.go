package kernel

import (
	"slices"

	"github.com/roach88/simkernel/internal/ir"
)

// Entity is a node of the simulation graph.
//
// An entity exclusively owns its state and its functions. Its relation
// back-references are ids of relations owned by the Model; they are
// maintained by the Model only.
type Entity struct {
	id        ID
	name      string
	typ       EntityType
	state     *ir.Variable
	functions []*Function
	relations map[string][]ID
}

func newEntity(id ID, name string, typ EntityType) *Entity {
	return &Entity{
		id:        id,
		name:      name,
		typ:       typ,
		state:     ir.NewVariable(),
		relations: make(map[string][]ID),
	}
}

// ID returns the entity's immutable id.
func (e *Entity) ID() ID { return e.id }

// Name returns the display name. Names are not required to be unique.
func (e *Entity) Name() string { return e.name }

// Type returns the entity type tag.
func (e *Entity) Type() EntityType { return e.typ }

// State returns the live state Variable. Mutating it directly is only valid
// during setup, outside Simulate.
func (e *Entity) State() *ir.Variable { return e.state }

// AddFunction transfers ownership of f to the entity. A function already
// owned under the same name is replaced in place and returned.
//
// Processes of f are not registered for execution; use Model.AddFunction or
// Model.AddProcess for that.
func (e *Entity) AddFunction(f *Function) *Function {
	f.owner = e.id
	for i, existing := range e.functions {
		if existing.name == f.name {
			e.functions[i] = f
			if existing != f {
				existing.owner = ""
			}
			return existing
		}
	}
	e.functions = append(e.functions, f)
	return nil
}

// Function returns the function with the given name.
func (e *Entity) Function(name string) (*Function, bool) {
	for _, f := range e.functions {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// RemoveFunction detaches and returns the named function. The entity
// ceases to own it; the caller may keep using the returned value.
func (e *Entity) RemoveFunction(name string) (*Function, bool) {
	for i, f := range e.functions {
		if f.name == name {
			e.functions = slices.Delete(e.functions, i, i+1)
			f.owner = ""
			return f, true
		}
	}
	return nil, false
}

// Functions returns the owned functions in insertion order.
func (e *Entity) Functions() []*Function {
	return slices.Clone(e.functions)
}

// RelationIDs returns the back-references recorded under name.
func (e *Entity) RelationIDs(name string) []ID {
	return slices.Clone(e.relations[name])
}

// RelationNames returns the relation names with at least one
// back-reference, sorted.
func (e *Entity) RelationNames() []string {
	names := make([]string, 0, len(e.relations))
	for name, ids := range e.relations {
		if len(ids) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (e *Entity) addRelationRef(name string, id ID) {
	if slices.Contains(e.relations[name], id) {
		return
	}
	e.relations[name] = append(e.relations[name], id)
}

func (e *Entity) removeRelationRef(name string, id ID) {
	ids := slices.DeleteFunc(e.relations[name], func(x ID) bool { return x == id })
	if len(ids) == 0 {
		delete(e.relations, name)
		return
	}
	e.relations[name] = ids
}
