package kernel

import (
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/queryir"
)

// ExecutionContext is handed to conditions and actions. It exposes the
// owning function, the owning entity and the whole model through read-only
// views.
type ExecutionContext struct {
	Process  string
	Function FunctionView
	Entity   EntityView
	Model    ModelView
}

// ModelView is the read-only projection of a Model.
type ModelView interface {
	// Step returns the 1-based index of the step being collected, or the
	// number of completed steps outside Simulate.
	Step() int64
	Entity(id ID) (EntityView, bool)
	Entities() []EntityView
	EntitiesByType(t EntityType) []EntityView
	EntitiesByName(name string) []EntityView
	EntitiesByNamePrefix(prefix string) []EntityView
	EntityTypes() []EntityType
	Relation(id ID) (RelationView, bool)
	Relations() []RelationView
	RelationsByName(name string) []RelationView
	Relationship(name string) (RelationshipDefinition, bool)
	Query(p queryir.Predicate) []EntityView
}

// EntityView is the read-only projection of an Entity.
type EntityView interface {
	ID() ID
	Name() string
	Type() EntityType
	// State returns a copy of the entity's state.
	State() *ir.Variable
	Get(key string) (ir.Value, bool)
	Function(name string) (FunctionView, bool)
	Functions() []FunctionView
	// Relations returns the live relations recorded under name.
	Relations(name string) []RelationView
	RelationNames() []string
}

// RelationView is the read-only projection of a Relation.
type RelationView interface {
	ID() ID
	Name() string
	Cardinality() Cardinality
	Entity1() ID
	Entity2() ID
	Other(id ID) ID
	// Metadata returns a copy of the relation's metadata.
	Metadata() *ir.Variable
}

// FunctionView is the read-only projection of a Function.
type FunctionView interface {
	Name() string
	Owner() ID
	// Parameters returns a copy of the function's parameters.
	Parameters() *ir.Variable
	Parameter(key string) (ir.Value, bool)
	IsActive() bool
	ProcessNames() []string
}

type modelView struct{ m *Model }

func (v modelView) Step() int64 { return v.m.step }

func (v modelView) Entity(id ID) (EntityView, bool) {
	e, ok := v.m.entities[id]
	if !ok {
		return nil, false
	}
	return entityView{m: v.m, e: e}, true
}

func (v modelView) Entities() []EntityView { return v.m.viewsOf(v.m.Entities()) }

func (v modelView) EntitiesByType(t EntityType) []EntityView {
	return v.m.viewsOf(v.m.EntitiesByType(t))
}

func (v modelView) EntitiesByName(name string) []EntityView {
	return v.m.viewsOf(v.m.EntitiesByName(name))
}

func (v modelView) EntitiesByNamePrefix(prefix string) []EntityView {
	return v.m.viewsOf(v.m.EntitiesByNamePrefix(prefix))
}

func (v modelView) EntityTypes() []EntityType { return v.m.EntityTypes() }

func (v modelView) Relation(id ID) (RelationView, bool) {
	r, ok := v.m.relations[id]
	if !ok {
		return nil, false
	}
	return relationView{r: r}, true
}

func (v modelView) Relations() []RelationView {
	rels := v.m.Relations()
	out := make([]RelationView, len(rels))
	for i, r := range rels {
		out[i] = relationView{r: r}
	}
	return out
}

func (v modelView) RelationsByName(name string) []RelationView {
	var out []RelationView
	for _, r := range v.m.Relations() {
		if r.name == name {
			out = append(out, relationView{r: r})
		}
	}
	return out
}

func (v modelView) Relationship(name string) (RelationshipDefinition, bool) {
	return v.m.registry.Lookup(name)
}

func (v modelView) Query(p queryir.Predicate) []EntityView {
	var out []EntityView
	for _, e := range v.m.Entities() {
		ev := entityView{m: v.m, e: e}
		if queryir.Evaluate(p, ev) {
			out = append(out, ev)
		}
	}
	return out
}

type entityView struct {
	m *Model
	e *Entity
}

func (v entityView) ID() ID              { return v.e.id }
func (v entityView) Name() string        { return v.e.name }
func (v entityView) Type() EntityType    { return v.e.typ }
func (v entityView) State() *ir.Variable { return v.e.state.Clone() }

func (v entityView) RelationNames() []string {
	return v.m.liveRelationNames(v.e)
}

func (v entityView) Get(key string) (ir.Value, bool) {
	val, ok := v.e.state.Get(key)
	if !ok {
		return nil, false
	}
	return ir.CloneValue(val), true
}

func (v entityView) Function(name string) (FunctionView, bool) {
	f, ok := v.e.Function(name)
	if !ok {
		return nil, false
	}
	return functionView{f: f}, true
}

func (v entityView) Functions() []FunctionView {
	out := make([]FunctionView, len(v.e.functions))
	for i, f := range v.e.functions {
		out[i] = functionView{f: f}
	}
	return out
}

func (v entityView) Relations(name string) []RelationView {
	var out []RelationView
	for _, r := range v.m.liveRelations(v.e, name) {
		out = append(out, relationView{r: r})
	}
	return out
}

// Subject implementation for queryir.Evaluate.

func (v entityView) EntityType() string { return string(v.e.typ) }
func (v entityView) EntityName() string { return v.e.name }
func (v entityView) StateValue(key string) (ir.Value, bool) {
	return v.e.state.Get(key)
}
func (v entityView) HasRelation(name string) bool {
	return len(v.m.liveRelations(v.e, name)) > 0
}

type relationView struct{ r *Relation }

func (v relationView) ID() ID                   { return v.r.id }
func (v relationView) Name() string             { return v.r.name }
func (v relationView) Cardinality() Cardinality { return v.r.cardinality }
func (v relationView) Entity1() ID              { return v.r.entity1 }
func (v relationView) Entity2() ID              { return v.r.entity2 }
func (v relationView) Other(id ID) ID           { return v.r.OtherEntity(id) }
func (v relationView) Metadata() *ir.Variable   { return v.r.metadata.Clone() }

type functionView struct{ f *Function }

func (v functionView) Name() string             { return v.f.name }
func (v functionView) Owner() ID                { return v.f.owner }
func (v functionView) Parameters() *ir.Variable { return v.f.params.Clone() }
func (v functionView) IsActive() bool           { return v.f.active }

func (v functionView) Parameter(key string) (ir.Value, bool) {
	val, ok := v.f.params.Get(key)
	if !ok {
		return nil, false
	}
	return ir.CloneValue(val), true
}

func (v functionView) ProcessNames() []string {
	names := make([]string, len(v.f.processes))
	for i, p := range v.f.processes {
		names[i] = p.name
	}
	return names
}
