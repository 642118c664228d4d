package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

const cell kernel.EntityType = "cell"

func newModel(t *testing.T) *kernel.Model {
	t.Helper()
	return kernel.NewModel(kernel.WithIDGenerator(kernel.NewSequenceGenerator("id")))
}

// install attaches an active function running the named behavior on e.
func install(t *testing.T, m *kernel.Model, e *kernel.Entity, behavior string, args map[string]any, cond kernel.Condition) *kernel.Function {
	t.Helper()
	action, err := Builtins().Action(behavior, args)
	require.NoError(t, err)

	f, ok := e.Function("life")
	if !ok {
		f = kernel.NewFunction("life")
		f.Activate()
		require.NoError(t, m.AddFunction(e.ID(), f))
	}
	p := kernel.NewConditionalProcess(behavior, cond, action)
	f.AddProcess(p)
	m.AddProcess(p)
	return f
}

func TestBuiltinsNames(t *testing.T) {
	assert.Equal(t, []string{
		"deactivate_self", "delete_self", "increment", "link", "scale", "set",
		"spawn", "tag_relations", "toggle_function", "unlink", "unset",
	}, Builtins().Names())
}

func TestActionErrors(t *testing.T) {
	r := Builtins()

	tests := []struct {
		name     string
		behavior string
		args     map[string]any
		contains string
	}{
		{"unknown behavior", "explode", nil, `unknown behavior "explode"`},
		{"missing key", "increment", nil, "key is required"},
		{"unused arg", "set", map[string]any{"key": "a", "value": 1, "extra": true}, "extra"},
		{"non numeric by", "increment", map[string]any{"key": "a", "by": "two"}, "by must be a number"},
		{"null set value", "set", map[string]any{"key": "a"}, "value"},
		{"spawn without type", "spawn", map[string]any{"name": "x"}, "name and type are required"},
		{"negative max", "spawn", map[string]any{"name": "x", "type": "cell", "max": -1}, "max must be non-negative"},
		{"link with both targets", "link", map[string]any{"relation": "r", "target": "a", "to_type": "cell"}, "exactly one"},
		{"link without target", "link", map[string]any{"relation": "r"}, "exactly one"},
		{"delete_self with args", "delete_self", map[string]any{"now": true}, "now"},
		{"nested spawn state", "spawn", map[string]any{"name": "x", "type": "cell", "state": map[string]any{"a": map[string]any{}}}, "state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Action(tt.behavior, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRegisterCustomBehavior(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("noop"))

	r.Register("noop", func(map[string]any) (kernel.Action, error) {
		return func(*kernel.ExecutionContext) []kernel.Command { return nil }, nil
	})
	assert.True(t, r.Has("noop"))

	action, err := r.Action("noop", nil)
	require.NoError(t, err)
	assert.Nil(t, action(&kernel.ExecutionContext{}))
}

func TestIncrement(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("counter", cell)
	install(t, m, e, "increment", map[string]any{"key": "n"}, nil)

	m.SimulateN(3)
	n, ok := e.State().GetInt("n")
	require.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestIncrementWidensToFloat(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("counter", cell)
	e.State().Set("n", ir.Int(1))
	install(t, m, e, "increment", map[string]any{"key": "n", "by": 0.5}, nil)

	m.Simulate()
	f, ok := e.State().GetFloat("n")
	require.True(t, ok)
	assert.InDelta(t, 1.5, f, 1e-9)
}

func TestIncrementIgnoresNonNumericState(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("counter", cell)
	e.State().Set("n", ir.String("many"))
	install(t, m, e, "increment", map[string]any{"key": "n"}, nil)

	report := m.Simulate()
	assert.Equal(t, 1, report.Executed)
	assert.Empty(t, report.Outcomes)
}

func TestSetUnsetAndScale(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)
	e.State().Set("energy", ir.Int(10))
	e.State().Set("stale", ir.Bool(true))
	install(t, m, e, "set", map[string]any{"key": "mood", "value": "calm"}, nil)
	install(t, m, e, "unset", map[string]any{"key": "stale"}, nil)
	install(t, m, e, "scale", map[string]any{"key": "energy", "factor": 0.5}, nil)

	m.Simulate()

	mood, _ := e.State().GetString("mood")
	assert.Equal(t, "calm", mood)
	assert.False(t, e.State().Has("stale"))
	energy, ok := e.State().GetFloat("energy")
	require.True(t, ok)
	assert.InDelta(t, 5.0, energy, 1e-9)

	// unset of an absent key emits nothing.
	report := m.Simulate()
	for _, o := range report.Outcomes {
		assert.NotEqual(t, kernel.KindDeleteEntityState, o.Command.Kind())
	}
}

func TestSpawnWithRelationAndMax(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.DefineRelationship("child_of", cell, cell, kernel.OneToMany))
	mother := m.CreateEntity("mother", cell)
	install(t, m, mother, "spawn", map[string]any{
		"name":     "daughter",
		"type":     "cell",
		"state":    map[string]any{"energy": 5},
		"relation": "child_of",
		"max":      2,
	}, nil)

	m.SimulateN(4)

	daughters := m.EntitiesByName("daughter")
	require.Len(t, daughters, 2)
	for _, d := range daughters {
		energy, _ := d.State().GetInt("energy")
		assert.Equal(t, int64(5), energy)
		rels := d.RelationIDs("child_of")
		require.Len(t, rels, 1)
		r, ok := m.Relation(rels[0])
		require.True(t, ok)
		assert.Equal(t, d.ID(), r.Entity1())
		assert.Equal(t, mother.ID(), r.Entity2())
	}
	assert.Len(t, mother.RelationIDs("child_of"), 2)
}

func TestSpawnManyToOneLinksOnlyFirstChild(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.DefineRelationship("child_of", cell, cell, kernel.ManyToOne))
	mother := m.CreateEntity("mother", cell)
	install(t, m, mother, "spawn", map[string]any{
		"name":     "daughter",
		"type":     "cell",
		"relation": "child_of",
		"max":      2,
	}, nil)

	m.SimulateN(3)

	// Both daughters exist but the mother, as target, accepts only one child_of.
	daughters := m.EntitiesByName("daughter")
	require.Len(t, daughters, 2)
	assert.Len(t, mother.RelationIDs("child_of"), 1)
	assert.Len(t, daughters[0].RelationIDs("child_of"), 1)
	assert.Empty(t, daughters[1].RelationIDs("child_of"))
}

func TestSpawnedStateIsNotShared(t *testing.T) {
	m := newModel(t)
	mother := m.CreateEntity("mother", cell)
	install(t, m, mother, "spawn", map[string]any{"name": "d", "type": "cell", "state": map[string]any{"n": 1}, "max": 2}, nil)

	m.SimulateN(2)
	ds := m.EntitiesByName("d")
	require.Len(t, ds, 2)
	ds[0].State().Set("n", ir.Int(99))
	n, _ := ds[1].State().GetInt("n")
	assert.Equal(t, int64(1), n)
}

func TestLinkByTargetName(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.DefineRelationship("follows", cell, cell, kernel.ManyToOne))
	leader := m.CreateEntity("leader", cell)
	follower := m.CreateEntity("follower", cell)
	install(t, m, follower, "link", map[string]any{"relation": "follows", "target": "leader"}, nil)

	report := m.Simulate()
	assert.Equal(t, 1, report.Applied())
	require.Len(t, follower.RelationIDs("follows"), 1)
	assert.Len(t, leader.RelationIDs("follows"), 1)

	// The leader already holds a follows relation, so ManyToOne drops a second one.
	report = m.Simulate()
	assert.Equal(t, 0, report.Applied())
	assert.Equal(t, 1, report.Dropped())
	assert.ErrorIs(t, report.Failures()[0].Err, kernel.ErrInvalidRelationType)
}

func TestLinkToType(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.DefineRelationship("knows", cell, cell, kernel.ManyToMany))
	hub := m.CreateEntity("hub", cell)
	m.CreateEntity("a", cell)
	m.CreateEntity("b", cell)
	m.CreateEntity("rock", "mineral")
	install(t, m, hub, "link", map[string]any{"relation": "knows", "to_type": "cell"}, nil)

	report := m.Simulate()
	assert.Equal(t, 2, report.Applied())
	assert.Len(t, hub.RelationIDs("knows"), 2)

	// Already linked entities are skipped.
	report = m.Simulate()
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 2, m.RelationCount())
}

func TestUnlinkAndTagRelations(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.DefineRelationship("knows", cell, cell, kernel.ManyToMany))
	a := m.CreateEntity("a", cell)
	b := m.CreateEntity("b", cell)
	_, err := m.AddRelation("knows", a.ID(), b.ID())
	require.NoError(t, err)

	install(t, m, a, "tag_relations", map[string]any{"relation": "knows", "key": "trust", "value": 3}, nil)
	m.Simulate()
	r := m.Relations()[0]
	trust, _ := r.Metadata().GetInt("trust")
	assert.Equal(t, int64(3), trust)

	// Tagging is idempotent.
	report := m.Simulate()
	assert.Empty(t, report.Outcomes)

	install(t, m, b, "unlink", map[string]any{"relation": "knows"}, nil)
	m.Simulate()
	assert.Equal(t, 0, m.RelationCount())
	assert.Empty(t, a.RelationIDs("knows"))
}

func TestDeleteSelf(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("mayfly", cell)
	install(t, m, e, "delete_self", nil, nil)

	m.Simulate()
	_, ok := m.Entity(e.ID())
	assert.False(t, ok)
	assert.Empty(t, m.Processes())
}

func TestDeactivateSelfAndToggle(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)
	life := install(t, m, e, "deactivate_self", nil, nil)

	sleeper := kernel.NewFunction("sleep")
	require.NoError(t, m.AddFunction(e.ID(), sleeper))
	wake, err := Builtins().Action("toggle_function", map[string]any{"function": "sleep", "active": true})
	require.NoError(t, err)
	p := kernel.NewProcess("wake", wake)
	life.AddProcess(p)
	m.AddProcess(p)

	m.Simulate()
	assert.False(t, life.IsActive())
	assert.True(t, sleeper.IsActive())

	report := m.Simulate()
	assert.Equal(t, 0, report.Executed)
}

func TestConditionCompare(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)
	e.State().Set("n", ir.Int(0))

	cond, err := Condition(&ir.ConditionSpec{Key: "n", Op: "lt", Value: 3})
	require.NoError(t, err)
	install(t, m, e, "increment", map[string]any{"key": "n"}, cond)

	m.SimulateN(10)
	n, _ := e.State().GetInt("n")
	assert.Equal(t, int64(3), n)
}

func TestConditionParameterScope(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)

	cond, err := Condition(&ir.ConditionSpec{Scope: ScopeParameter, Key: "enabled", Op: "eq", Value: true})
	require.NoError(t, err)
	f := install(t, m, e, "increment", map[string]any{"key": "n"}, cond)

	m.Simulate()
	assert.False(t, e.State().Has("n"))

	f.Parameters().Set("enabled", ir.Bool(true))
	m.Simulate()
	n, _ := e.State().GetInt("n")
	assert.Equal(t, int64(1), n)
}

func TestConditionPresence(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)

	absent, err := Condition(&ir.ConditionSpec{Key: "born", Op: OpAbsent})
	require.NoError(t, err)
	install(t, m, e, "set", map[string]any{"key": "born", "value": true}, absent)

	exists, err := Condition(&ir.ConditionSpec{Key: "born", Op: OpExists})
	require.NoError(t, err)
	install(t, m, e, "increment", map[string]any{"key": "age"}, exists)

	// Both conditions see the state before the step's commands apply.
	m.Simulate()
	assert.False(t, e.State().Has("age"))
	m.Simulate()
	age, _ := e.State().GetInt("age")
	assert.Equal(t, int64(1), age)
}

func TestConditionEvery(t *testing.T) {
	m := newModel(t)
	e := m.CreateEntity("e", cell)

	cond, err := Condition(&ir.ConditionSpec{Kind: ConditionEvery, Every: 3})
	require.NoError(t, err)
	install(t, m, e, "increment", map[string]any{"key": "n"}, cond)

	m.SimulateN(7)
	n, _ := e.State().GetInt("n")
	assert.Equal(t, int64(2), n)
}

func TestConditionAlwaysAndNil(t *testing.T) {
	cond, err := Condition(&ir.ConditionSpec{Kind: ConditionAlways})
	require.NoError(t, err)
	require.NotNil(t, cond)
	assert.True(t, cond.Evaluate(&kernel.ExecutionContext{}))

	cond, err = Condition(nil)
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestConditionErrors(t *testing.T) {
	tests := []struct {
		name string
		spec ir.ConditionSpec
	}{
		{"unknown kind", ir.ConditionSpec{Kind: "sometimes"}},
		{"zero every", ir.ConditionSpec{Kind: ConditionEvery}},
		{"missing key", ir.ConditionSpec{Op: "eq", Value: 1}},
		{"unknown scope", ir.ConditionSpec{Scope: "world", Key: "k", Op: "eq", Value: 1}},
		{"unknown op", ir.ConditionSpec{Key: "k", Op: "like", Value: 1}},
		{"null value", ir.ConditionSpec{Key: "k", Op: "eq"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Condition(&tt.spec)
			assert.Error(t, err)
		})
	}
}
