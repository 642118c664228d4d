package kernel

import (
	"slices"
	"strings"
)

// RelationshipDefinition is the schema of a relation name: which entity
// types it connects and its cardinality class.
type RelationshipDefinition struct {
	Name        string
	SourceType  EntityType
	TargetType  EntityType
	Cardinality Cardinality
}

// RelationshipRegistry maps relation names to their definitions.
type RelationshipRegistry struct {
	defs map[string]RelationshipDefinition
}

// NewRelationshipRegistry creates an empty registry.
func NewRelationshipRegistry() *RelationshipRegistry {
	return &RelationshipRegistry{defs: make(map[string]RelationshipDefinition)}
}

// Define registers def, replacing any definition with the same name.
// Returns the replaced definition, if any.
func (r *RelationshipRegistry) Define(def RelationshipDefinition) (RelationshipDefinition, bool) {
	prev, existed := r.defs[def.Name]
	r.defs[def.Name] = def
	return prev, existed
}

// Lookup returns the definition registered under name.
func (r *RelationshipRegistry) Lookup(name string) (RelationshipDefinition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Len returns the number of definitions.
func (r *RelationshipRegistry) Len() int { return len(r.defs) }

// Definitions returns every definition sorted by name.
func (r *RelationshipRegistry) Definitions() []RelationshipDefinition {
	out := make([]RelationshipDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b RelationshipDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
