package kernel

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/simkernel/internal/ir"
)

// Model owns every entity and relation, the relationship registry and the
// ordered list of registered processes.
//
// INVARIANTS:
//   - every relation's endpoints are present in entities
//   - an entity's back-references name only relations present in relations
//   - processes run in registration order; a process registered during a
//     step runs from the next step
type Model struct {
	ids    IDGenerator
	logger *slog.Logger
	strict bool

	registry      *RelationshipRegistry
	entities      map[ID]*Entity
	entityOrder   []ID
	relations     map[ID]*Relation
	relationOrder []ID

	processes  []*Process
	registered map[*Process]struct{}

	step int64
}

// Option configures a Model.
type Option func(*Model)

// WithIDGenerator sets the id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Model) {
		m.ids = g
	}
}

// WithLogger sets the logger for dropped commands and step summaries.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithStrictRelationships makes DefineRelationship fail with
// RELATION_ALREADY_EXISTS when a name is redefined with a different shape.
// Identical redefinitions are still accepted.
func WithStrictRelationships() Option {
	return func(m *Model) {
		m.strict = true
	}
}

// NewModel creates an empty model.
func NewModel(opts ...Option) *Model {
	m := &Model{
		ids:        UUIDv7Generator{},
		logger:     slog.New(slog.DiscardHandler),
		registry:   NewRelationshipRegistry(),
		entities:   make(map[ID]*Entity),
		relations:  make(map[ID]*Relation),
		registered: make(map[*Process]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Step returns the number of completed steps.
func (m *Model) Step() int64 { return m.step }

// View returns a read-only view of the model.
func (m *Model) View() ModelView { return modelView{m: m} }

// CreateEntity creates and registers an empty entity.
func (m *Model) CreateEntity(name string, typ EntityType) *Entity {
	e := newEntity(m.ids.NewID(), name, typ)
	m.entities[e.id] = e
	m.entityOrder = append(m.entityOrder, e.id)
	return e
}

// RemoveEntity deletes an entity. Every incident relation is removed from
// the model and from the other endpoint, and the entity's processes are
// unregistered.
func (m *Model) RemoveEntity(id ID) error {
	e, ok := m.entities[id]
	if !ok {
		return entityNotFound(id)
	}
	m.removeEntity(e)
	return nil
}

func (m *Model) removeEntity(e *Entity) {
	for _, rid := range slices.Clone(m.relationOrder) {
		if r := m.relations[rid]; r.Involves(e.id) {
			m.unlinkRelation(r)
		}
	}
	for _, f := range e.functions {
		if f.owner == e.id {
			m.unregisterFunction(f)
		}
	}
	delete(m.entities, e.id)
	m.entityOrder = slices.DeleteFunc(m.entityOrder, func(x ID) bool { return x == e.id })
}

// AddFunction attaches f to the entity and registers its processes.
// A function with the same name is replaced and its processes unregistered.
func (m *Model) AddFunction(entityID ID, f *Function) error {
	e, ok := m.entities[entityID]
	if !ok {
		return entityNotFound(entityID)
	}
	m.attachFunction(e, f)
	return nil
}

func (m *Model) attachFunction(e *Entity, f *Function) {
	// A function has one owner: moving it drops it from the previous one.
	if f.owner != "" && f.owner != e.id {
		if prev, ok := m.entities[f.owner]; ok {
			if held, ok := prev.Function(f.name); ok && held == f {
				prev.RemoveFunction(f.name)
			}
		}
	}
	if replaced := e.AddFunction(f); replaced != nil && replaced != f {
		m.unregisterFunction(replaced)
	}
	for _, p := range f.processes {
		m.AddProcess(p)
	}
}

// AddProcess registers p for execution. Registering a process twice is a
// no-op. The process runs only while it is attached to a function owned by
// an entity of this model.
func (m *Model) AddProcess(p *Process) {
	if _, ok := m.registered[p]; ok {
		return
	}
	m.registered[p] = struct{}{}
	m.processes = append(m.processes, p)
}

// Processes returns the registered processes in registration order.
func (m *Model) Processes() []*Process {
	return slices.Clone(m.processes)
}

func (m *Model) unregisterProcess(p *Process) {
	if _, ok := m.registered[p]; !ok {
		return
	}
	delete(m.registered, p)
	m.processes = slices.DeleteFunc(m.processes, func(q *Process) bool { return q == p })
}

func (m *Model) unregisterFunction(f *Function) {
	for _, p := range f.processes {
		m.unregisterProcess(p)
	}
}

// pruneProcesses drops registrations whose owning entity has been deleted.
// Entity ids are never reused, so such processes can never run again.
func (m *Model) pruneProcesses() {
	m.processes = slices.DeleteFunc(m.processes, func(p *Process) bool {
		if p.function == nil || p.function.owner == "" {
			return false
		}
		if _, ok := m.entities[p.function.owner]; ok {
			return false
		}
		delete(m.registered, p)
		return true
	})
}

// DefineRelationship registers a relationship definition. By default a
// redefinition silently replaces the previous one.
func (m *Model) DefineRelationship(name string, source, target EntityType, card Cardinality) error {
	if name == "" {
		return invalidCommand("relationship name is empty")
	}
	if !card.Valid() {
		return &Error{
			Code:     CodeInvalidRelationType,
			Message:  fmt.Sprintf("unknown cardinality %s", card),
			Relation: name,
		}
	}
	def := RelationshipDefinition{Name: name, SourceType: source, TargetType: target, Cardinality: card}
	if m.strict {
		if prev, ok := m.registry.Lookup(name); ok && prev != def {
			return &Error{
				Code:     CodeRelationAlreadyExists,
				Message:  fmt.Sprintf("relationship %q already defined as %s -> %s (%s)", name, prev.SourceType, prev.TargetType, prev.Cardinality),
				Relation: name,
			}
		}
	}
	if prev, replaced := m.registry.Define(def); replaced && prev != def {
		m.logger.Debug("relationship redefined", "relation", name, "previous", prev.Cardinality.String(), "cardinality", card.String())
	}
	return nil
}

// Relationship returns the definition registered under name.
func (m *Model) Relationship(name string) (RelationshipDefinition, bool) {
	return m.registry.Lookup(name)
}

// Relationships returns every definition sorted by name.
func (m *Model) Relationships() []RelationshipDefinition {
	return m.registry.Definitions()
}

// AddRelation creates a relation from id1 to id2.
//
// Checks, in order: the relationship is defined (UNDEFINED_RELATION), both
// entities exist (ENTITY_NOT_FOUND), their types match the definition
// (INVALID_RELATION_ENTITY_TYPES) and the cardinality class allows it
// (INVALID_RELATION_TYPE):
//   - one_to_one: neither endpoint may already have a same-named relation
//   - one_to_many: id1 may not already have a same-named relation
//   - many_to_one: id2 may not already have a same-named relation
//   - many_to_many: unconstrained
func (m *Model) AddRelation(name string, id1, id2 ID) (*Relation, error) {
	def, ok := m.registry.Lookup(name)
	if !ok {
		return nil, &Error{Code: CodeUndefinedRelation, Message: fmt.Sprintf("relationship %q is not defined", name), Relation: name}
	}
	e1, ok := m.entities[id1]
	if !ok {
		return nil, entityNotFound(id1)
	}
	e2, ok := m.entities[id2]
	if !ok {
		return nil, entityNotFound(id2)
	}
	if e1.typ != def.SourceType || e2.typ != def.TargetType {
		return nil, &Error{
			Code: CodeInvalidRelationEntityTypes,
			Message: fmt.Sprintf("relationship %q connects %s -> %s, got %s -> %s",
				name, def.SourceType, def.TargetType, e1.typ, e2.typ),
			Relation: name,
		}
	}

	var violated bool
	switch def.Cardinality {
	case OneToOne:
		violated = m.hasLiveRelation(e1, name) || m.hasLiveRelation(e2, name)
	case OneToMany:
		violated = m.hasLiveRelation(e1, name)
	case ManyToOne:
		violated = m.hasLiveRelation(e2, name)
	}
	if violated {
		return nil, &Error{
			Code:        CodeInvalidRelationType,
			Message:     fmt.Sprintf("relation %q between %s and %s violates cardinality", name, id1, id2),
			Relation:    name,
			Cardinality: def.Cardinality,
		}
	}

	r := &Relation{
		id:          m.ids.NewID(),
		name:        name,
		cardinality: def.Cardinality,
		entity1:     id1,
		entity2:     id2,
		metadata:    ir.NewVariable(),
	}
	m.relations[r.id] = r
	m.relationOrder = append(m.relationOrder, r.id)
	e1.addRelationRef(name, r.id)
	e2.addRelationRef(name, r.id)
	return r, nil
}

// RemoveRelation deletes a relation and both endpoint back-references.
func (m *Model) RemoveRelation(id ID) error {
	r, ok := m.relations[id]
	if !ok {
		return relationNotFound(id)
	}
	m.unlinkRelation(r)
	return nil
}

func (m *Model) unlinkRelation(r *Relation) {
	if e, ok := m.entities[r.entity1]; ok {
		e.removeRelationRef(r.name, r.id)
	}
	if e, ok := m.entities[r.entity2]; ok {
		e.removeRelationRef(r.name, r.id)
	}
	delete(m.relations, r.id)
	m.relationOrder = slices.DeleteFunc(m.relationOrder, func(x ID) bool { return x == r.id })
}

// liveRelations resolves e's back-references under name, pruning any that
// no longer resolve.
func (m *Model) liveRelations(e *Entity, name string) []*Relation {
	ids := e.relations[name]
	out := make([]*Relation, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.relations[id]; ok {
			out = append(out, r)
		}
	}
	if len(out) != len(ids) {
		for _, id := range slices.Clone(ids) {
			if _, ok := m.relations[id]; !ok {
				e.removeRelationRef(name, id)
			}
		}
	}
	return out
}

func (m *Model) hasLiveRelation(e *Entity, name string) bool {
	return len(m.liveRelations(e, name)) > 0
}

func (m *Model) liveRelationNames(e *Entity) []string {
	var names []string
	for _, name := range e.RelationNames() {
		if m.hasLiveRelation(e, name) {
			names = append(names, name)
		}
	}
	return names
}

// Entity returns the entity with the given id.
func (m *Model) Entity(id ID) (*Entity, bool) {
	e, ok := m.entities[id]
	return e, ok
}

// Entities returns every entity in creation order.
func (m *Model) Entities() []*Entity {
	out := make([]*Entity, 0, len(m.entityOrder))
	for _, id := range m.entityOrder {
		out = append(out, m.entities[id])
	}
	return out
}

// EntityCount returns the number of live entities.
func (m *Model) EntityCount() int { return len(m.entities) }

// EntitiesByType returns the entities of a type in creation order.
func (m *Model) EntitiesByType(t EntityType) []*Entity {
	return m.filterEntities(func(e *Entity) bool { return e.typ == t })
}

// EntitiesByName returns the entities with an exact name in creation order.
func (m *Model) EntitiesByName(name string) []*Entity {
	return m.filterEntities(func(e *Entity) bool { return e.name == name })
}

// EntitiesByNamePrefix returns the entities whose name starts with prefix.
func (m *Model) EntitiesByNamePrefix(prefix string) []*Entity {
	return m.filterEntities(func(e *Entity) bool { return strings.HasPrefix(e.name, prefix) })
}

// EntityByName returns the first entity with the given name in creation
// order. This is the tie-break used for name-based relation targets.
func (m *Model) EntityByName(name string) (*Entity, bool) {
	for _, id := range m.entityOrder {
		if e := m.entities[id]; e.name == name {
			return e, true
		}
	}
	return nil, false
}

func (m *Model) filterEntities(keep func(*Entity) bool) []*Entity {
	var out []*Entity
	for _, id := range m.entityOrder {
		if e := m.entities[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// EntityTypes returns the distinct types of live entities, sorted.
func (m *Model) EntityTypes() []EntityType {
	seen := make(map[EntityType]struct{})
	var out []EntityType
	for _, e := range m.entities {
		if _, ok := seen[e.typ]; !ok {
			seen[e.typ] = struct{}{}
			out = append(out, e.typ)
		}
	}
	slices.Sort(out)
	return out
}

// Relation returns the relation with the given id.
func (m *Model) Relation(id ID) (*Relation, bool) {
	r, ok := m.relations[id]
	return r, ok
}

// Relations returns every relation in creation order.
func (m *Model) Relations() []*Relation {
	out := make([]*Relation, 0, len(m.relationOrder))
	for _, id := range m.relationOrder {
		out = append(out, m.relations[id])
	}
	return out
}

// RelationCount returns the number of live relations.
func (m *Model) RelationCount() int { return len(m.relations) }

func (m *Model) viewsOf(es []*Entity) []EntityView {
	out := make([]EntityView, len(es))
	for i, e := range es {
		out[i] = entityView{m: m, e: e}
	}
	return out
}

// Digest fingerprints the graph: entities with their state and functions,
// and relations with their metadata. The step counter is not included, so
// two steps that leave the graph unchanged share a digest.
func (m *Model) Digest() (string, error) {
	entities := make(map[string]any, len(m.entities))
	for id, e := range m.entities {
		functions := make(map[string]any, len(e.functions))
		for _, f := range e.functions {
			procs := make([]any, len(f.processes))
			for i, p := range f.processes {
				procs[i] = p.name
			}
			functions[f.name] = map[string]any{
				"active":     f.active,
				"parameters": f.params,
				"processes":  procs,
			}
		}
		entities[string(id)] = map[string]any{
			"name":      e.name,
			"type":      string(e.typ),
			"state":     e.state,
			"functions": functions,
		}
	}
	relations := make(map[string]any, len(m.relations))
	for id, r := range m.relations {
		relations[string(id)] = map[string]any{
			"name":     r.name,
			"entity1":  string(r.entity1),
			"entity2":  string(r.entity2),
			"metadata": r.metadata,
		}
	}
	return ir.Digest(ir.DomainModel, map[string]any{
		"entities":  entities,
		"relations": relations,
	})
}
