package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/queryir"
)

const person EntityType = "person"

func newTestModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	return NewModel(append([]Option{WithIDGenerator(NewSequenceGenerator("id"))}, opts...)...)
}

// assertGraphIntegrity checks that every relation's endpoints exist and that
// every back-reference resolves to a relation involving its entity.
func assertGraphIntegrity(t *testing.T, m *Model) {
	t.Helper()
	for _, r := range m.Relations() {
		e1, ok := m.Entity(r.Entity1())
		require.True(t, ok, "relation %s has dangling entity1", r.ID())
		e2, ok := m.Entity(r.Entity2())
		require.True(t, ok, "relation %s has dangling entity2", r.ID())
		assert.Contains(t, e1.RelationIDs(r.Name()), r.ID())
		assert.Contains(t, e2.RelationIDs(r.Name()), r.ID())
	}
	for _, e := range m.Entities() {
		for _, name := range e.RelationNames() {
			for _, rid := range e.RelationIDs(name) {
				r, ok := m.Relation(rid)
				require.True(t, ok, "entity %s holds stale reference %s", e.ID(), rid)
				assert.True(t, r.Involves(e.ID()))
			}
		}
	}
}

func TestCreateEntity(t *testing.T) {
	m := newTestModel(t)
	john := m.CreateEntity("John", person)
	john.State().Set("age", ir.Int(30))

	assert.Equal(t, ID("id-1"), john.ID())
	got, ok := m.Entity(john.ID())
	require.True(t, ok)
	assert.Same(t, john, got)
	assert.Equal(t, 1, m.EntityCount())
}

func TestEntityQueries(t *testing.T) {
	m := newTestModel(t)
	john := m.CreateEntity("John", person)
	jane := m.CreateEntity("Jane", person)
	rex := m.CreateEntity("Rex", "dog")
	john2 := m.CreateEntity("John", person)

	assert.Equal(t, []*Entity{john, jane, rex, john2}, m.Entities())
	assert.Equal(t, []*Entity{john, jane, john2}, m.EntitiesByType(person))
	assert.Equal(t, []*Entity{john, john2}, m.EntitiesByName("John"))
	assert.Equal(t, []*Entity{john, jane, john2}, m.EntitiesByNamePrefix("J"))
	assert.Empty(t, m.EntitiesByType("cat"))
	assert.Equal(t, []EntityType{"dog", person}, m.EntityTypes())

	first, ok := m.EntityByName("John")
	require.True(t, ok)
	assert.Same(t, john, first, "first match in creation order")

	require.NoError(t, m.RemoveEntity(john.ID()))
	first, ok = m.EntityByName("John")
	require.True(t, ok)
	assert.Same(t, john2, first, "deleted entities are skipped")

	_, ok = m.EntityByName("Nobody")
	assert.False(t, ok)
}

func TestDefineRelationship(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))
	require.NoError(t, m.DefineRelationship("knows", person, person, OneToOne), "redefinition overwrites by default")

	def, ok := m.Relationship("knows")
	require.True(t, ok)
	assert.Equal(t, OneToOne, def.Cardinality)
	assert.Len(t, m.Relationships(), 1)

	err := m.DefineRelationship("bad", person, person, Cardinality(0))
	assert.ErrorIs(t, err, ErrInvalidRelationType)

	err = m.DefineRelationship("", person, person, OneToOne)
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDefineRelationshipStrict(t *testing.T) {
	m := newTestModel(t, WithStrictRelationships())
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany), "identical redefinition is accepted")

	err := m.DefineRelationship("knows", person, person, OneToOne)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelationAlreadyExists)

	def, _ := m.Relationship("knows")
	assert.Equal(t, ManyToMany, def.Cardinality, "failed redefinition leaves the original")
}

func TestAddRelationErrors(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	d := m.CreateEntity("D", "dog")
	require.NoError(t, m.DefineRelationship("owns", person, "dog", OneToMany))

	_, err := m.AddRelation("likes", a.ID(), d.ID())
	assert.ErrorIs(t, err, ErrUndefinedRelation)

	_, err = m.AddRelation("owns", "ghost", d.ID())
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = m.AddRelation("owns", a.ID(), "ghost")
	require.ErrorIs(t, err, ErrEntityNotFound)
	var ke *Error
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, ID("ghost"), ke.EntityID)

	_, err = m.AddRelation("owns", d.ID(), a.ID())
	assert.ErrorIs(t, err, ErrInvalidRelationEntityTypes)

	r, err := m.AddRelation("owns", a.ID(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, OneToMany, r.Cardinality())
	assert.Equal(t, a.ID(), r.Entity1())
	assert.Equal(t, d.ID(), r.Entity2())
	assertGraphIntegrity(t, m)
}

func TestCardinalityOneToOne(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("pairs", person, person, OneToOne))

	_, err := m.AddRelation("pairs", a.ID(), b.ID())
	require.NoError(t, err)

	_, err = m.AddRelation("pairs", a.ID(), c.ID())
	assert.ErrorIs(t, err, ErrInvalidRelationType)

	_, err = m.AddRelation("pairs", c.ID(), b.ID())
	require.ErrorIs(t, err, ErrInvalidRelationType)
	var ke *Error
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "pairs", ke.Relation)
	assert.Equal(t, OneToOne, ke.Cardinality)
}

func TestCardinalityOneToMany(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("mentors", person, person, OneToMany))

	_, err := m.AddRelation("mentors", a.ID(), b.ID())
	require.NoError(t, err)

	// The source side may hold only one same-named relation.
	_, err = m.AddRelation("mentors", a.ID(), c.ID())
	assert.ErrorIs(t, err, ErrInvalidRelationType)

	// The target side is unconstrained.
	_, err = m.AddRelation("mentors", c.ID(), b.ID())
	assert.NoError(t, err)
}

func TestCardinalityManyToOne(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("reports_to", person, person, ManyToOne))

	_, err := m.AddRelation("reports_to", a.ID(), b.ID())
	require.NoError(t, err)

	_, err = m.AddRelation("reports_to", c.ID(), b.ID())
	assert.ErrorIs(t, err, ErrInvalidRelationType)

	_, err = m.AddRelation("reports_to", a.ID(), c.ID())
	assert.NoError(t, err)
}

func TestCardinalityManyToMany(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))

	for _, pair := range [][2]*Entity{{a, b}, {a, c}, {c, b}, {a, b}} {
		_, err := m.AddRelation("knows", pair[0].ID(), pair[1].ID())
		require.NoError(t, err)
	}
	assert.Equal(t, 4, m.RelationCount())
	assertGraphIntegrity(t, m)
}

func TestCardinalityFreedAfterRemoval(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("pairs", person, person, OneToOne))

	r, err := m.AddRelation("pairs", a.ID(), b.ID())
	require.NoError(t, err)
	require.NoError(t, m.RemoveRelation(r.ID()))

	_, err = m.AddRelation("pairs", a.ID(), c.ID())
	assert.NoError(t, err)
}

func TestRemoveRelation(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))
	r, err := m.AddRelation("knows", a.ID(), b.ID())
	require.NoError(t, err)

	require.NoError(t, m.RemoveRelation(r.ID()))
	assert.Empty(t, a.RelationIDs("knows"))
	assert.Empty(t, b.RelationIDs("knows"))
	_, ok := m.Relation(r.ID())
	assert.False(t, ok)

	err = m.RemoveRelation(r.ID())
	assert.ErrorIs(t, err, ErrRelationNotFound)
}

func TestSelfRelation(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	require.NoError(t, m.DefineRelationship("likes", person, person, ManyToMany))

	r, err := m.AddRelation("likes", a.ID(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, []ID{r.ID()}, a.RelationIDs("likes"))

	require.NoError(t, m.RemoveEntity(a.ID()))
	assert.Equal(t, 0, m.RelationCount())
}

func TestRemoveEntityCascades(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)
	c := m.CreateEntity("C", person)
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))
	_, err := m.AddRelation("knows", a.ID(), b.ID())
	require.NoError(t, err)
	_, err = m.AddRelation("knows", c.ID(), a.ID())
	require.NoError(t, err)
	bc, err := m.AddRelation("knows", b.ID(), c.ID())
	require.NoError(t, err)

	f := NewFunction("f")
	p := NewProcess("p", nil)
	f.AddProcess(p)
	require.NoError(t, m.AddFunction(a.ID(), f))
	require.Len(t, m.Processes(), 1)

	require.NoError(t, m.RemoveEntity(a.ID()))

	assert.Equal(t, []*Relation{m.relations[bc.ID()]}, m.Relations())
	assert.Equal(t, []ID{bc.ID()}, b.RelationIDs("knows"))
	assert.Equal(t, []ID{bc.ID()}, c.RelationIDs("knows"))
	assert.Empty(t, m.Processes(), "owned processes are unregistered")
	assertGraphIntegrity(t, m)

	assert.ErrorIs(t, m.RemoveEntity(a.ID()), ErrEntityNotFound)
}

func TestAddFunctionRegistersProcesses(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)

	f := NewFunction("f")
	p1 := NewProcess("p1", nil)
	f.AddProcess(p1)
	require.NoError(t, m.AddFunction(a.ID(), f))
	m.AddProcess(p1)
	assert.Equal(t, []*Process{p1}, m.Processes(), "double registration is ignored")

	g := NewFunction("f")
	p2 := NewProcess("p2", nil)
	g.AddProcess(p2)
	require.NoError(t, m.AddFunction(a.ID(), g))
	assert.Equal(t, []*Process{p2}, m.Processes(), "replaced function's processes are unregistered")

	assert.ErrorIs(t, m.AddFunction("ghost", NewFunction("x")), ErrEntityNotFound)
}

func TestAddFunctionMovesOwnership(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	b := m.CreateEntity("B", person)

	f := NewFunction("tick")
	f.Activate()
	f.AddProcess(NewConditionalProcess("inc", Always, func(ctx *ExecutionContext) []Command {
		n, _ := ctx.Entity.State().GetInt("n")
		return []Command{UpdateEntityState{EntityID: ctx.Entity.ID(), Key: "n", Value: ir.Int(n + 1)}}
	}))
	require.NoError(t, m.AddFunction(a.ID(), f))
	require.NoError(t, m.AddFunction(b.ID(), f))

	_, held := a.Function("tick")
	assert.False(t, held, "previous owner no longer holds the function")
	assert.Equal(t, b.ID(), f.Owner())
	assert.Len(t, m.Processes(), 1)

	require.NoError(t, m.RemoveEntity(a.ID()))
	assert.Len(t, m.Processes(), 1, "removing the old owner keeps the new owner's processes")

	m.Simulate()
	n, ok := b.State().GetInt("n")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
	assertGraphIntegrity(t, m)
}

func TestModelView(t *testing.T) {
	m := newTestModel(t)
	john := m.CreateEntity("John", person)
	john.State().Set("age", ir.Int(30))
	jane := m.CreateEntity("Jane", person)
	require.NoError(t, m.DefineRelationship("knows", person, person, ManyToMany))
	r, err := m.AddRelation("knows", john.ID(), jane.ID())
	require.NoError(t, err)
	r.Metadata().Set("since", ir.Int(1990))

	f := NewFunction("aging")
	f.Parameters().Set("rate", ir.Int(1))
	f.AddProcess(NewProcess("grow", nil))
	require.NoError(t, m.AddFunction(john.ID(), f))

	view := m.View()
	assert.Equal(t, int64(0), view.Step())

	ev, ok := view.Entity(john.ID())
	require.True(t, ok)
	assert.Equal(t, "John", ev.Name())
	assert.Equal(t, person, ev.Type())

	// Views hand out copies.
	ev.State().Set("age", ir.Int(99))
	age, _ := john.State().GetInt("age")
	assert.Equal(t, int64(30), age)

	rels := ev.Relations("knows")
	require.Len(t, rels, 1)
	assert.Equal(t, jane.ID(), rels[0].Other(john.ID()))
	since, ok := rels[0].Metadata().GetInt("since")
	require.True(t, ok)
	assert.Equal(t, int64(1990), since)
	assert.Equal(t, []string{"knows"}, ev.RelationNames())

	fv, ok := ev.Function("aging")
	require.True(t, ok)
	assert.False(t, fv.IsActive())
	assert.Equal(t, john.ID(), fv.Owner())
	assert.Equal(t, []string{"grow"}, fv.ProcessNames())
	rate, ok := fv.Parameter("rate")
	require.True(t, ok)
	assert.Equal(t, ir.Int(1), rate)
	fv.Parameters().Set("rate", ir.Int(5))
	rate, _ = f.Parameter("rate")
	assert.Equal(t, ir.Int(1), rate)
	assert.Len(t, ev.Functions(), 1)

	assert.Len(t, view.Entities(), 2)
	assert.Len(t, view.EntitiesByName("Jane"), 1)
	assert.Len(t, view.EntitiesByNamePrefix("Ja"), 1)
	assert.Len(t, view.EntitiesByType(person), 2)
	assert.Equal(t, []EntityType{person}, view.EntityTypes())
	assert.Len(t, view.Relations(), 1)
	assert.Len(t, view.RelationsByName("knows"), 1)
	_, ok = view.Relation(r.ID())
	assert.True(t, ok)
	_, ok = view.Relationship("knows")
	assert.True(t, ok)
	_, ok = view.Entity("ghost")
	assert.False(t, ok)
}

func TestModelViewQuery(t *testing.T) {
	m := newTestModel(t)
	john := m.CreateEntity("John", person)
	john.State().Set("age", ir.Int(30))
	jane := m.CreateEntity("Jane", person)
	jane.State().Set("age", ir.Int(12))
	rex := m.CreateEntity("Rex", "dog")
	require.NoError(t, m.DefineRelationship("owns", person, "dog", OneToMany))
	_, err := m.AddRelation("owns", john.ID(), rex.ID())
	require.NoError(t, err)

	adults := m.View().Query(queryir.And{Predicates: []queryir.Predicate{
		queryir.TypeIs{Type: string(person)},
		queryir.StateCompare{Key: "age", Op: queryir.OpGe, Value: ir.Int(18)},
	}})
	require.Len(t, adults, 1)
	assert.Equal(t, john.ID(), adults[0].ID())

	owners := m.View().Query(queryir.HasRelation{Name: "owns"})
	assert.Len(t, owners, 2, "both endpoints hold the relation")

	assert.Len(t, m.View().Query(nil), 3)
}

func TestDigestTracksGraph(t *testing.T) {
	m := newTestModel(t)
	a := m.CreateEntity("A", person)
	a.State().Set("n", ir.Int(1))

	d1, err := m.Digest()
	require.NoError(t, err)
	d2, err := m.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	a.State().Set("n", ir.Int(2))
	d3, err := m.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	f := NewFunction("f")
	require.NoError(t, m.AddFunction(a.ID(), f))
	d4, _ := m.Digest()
	f.Activate()
	d5, _ := m.Digest()
	assert.NotEqual(t, d4, d5, "activation changes the digest")
}
