package kernel

import "github.com/roach88/simkernel/internal/ir"

// Relation is a named edge between two entities, owned by the Model.
// Endpoints are stored as ids and resolved through the Model.
type Relation struct {
	id          ID
	name        string
	cardinality Cardinality
	entity1     ID
	entity2     ID
	metadata    *ir.Variable
}

// ID returns the relation id.
func (r *Relation) ID() ID { return r.id }

// Name returns the relationship name.
func (r *Relation) Name() string { return r.name }

// Cardinality returns the cardinality class recorded at creation.
func (r *Relation) Cardinality() Cardinality { return r.cardinality }

// Entity1 returns the source endpoint id.
func (r *Relation) Entity1() ID { return r.entity1 }

// Entity2 returns the target endpoint id.
func (r *Relation) Entity2() ID { return r.entity2 }

// Metadata returns the live metadata Variable.
func (r *Relation) Metadata() *ir.Variable { return r.metadata }

// OtherEntity returns the endpoint opposite to id. An id that matches
// neither endpoint yields Entity1.
func (r *Relation) OtherEntity(id ID) ID {
	if id == r.entity1 {
		return r.entity2
	}
	return r.entity1
}

// Involves reports whether id is one of the endpoints.
func (r *Relation) Involves(id ID) bool {
	return r.entity1 == id || r.entity2 == id
}
