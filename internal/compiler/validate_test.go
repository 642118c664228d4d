package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/behavior"
	"github.com/roach88/simkernel/internal/ir"
)

// villageSpec returns a small valid model: two people who know each other,
// one house, and an aging process on alice.
func villageSpec() *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "village",
		Relationships: []ir.RelationshipSpec{
			{Name: "knows", Source: "person", Target: "person", Cardinality: "many_to_many"},
			{Name: "lives_in", Source: "person", Target: "house", Cardinality: "many_to_one"},
		},
		Entities: []ir.EntitySpec{
			{
				Name:  "alice",
				Type:  "person",
				State: ir.Values{"age": ir.Int(30)},
				Functions: []ir.FunctionSpec{{
					Name:   "aging",
					Active: true,
					Processes: []ir.ProcessSpec{{
						Name:      "grow",
						Behavior:  "increment",
						Args:      map[string]any{"key": "age"},
						Condition: &ir.ConditionSpec{Key: "age", Op: "lt", Value: 32},
					}},
				}},
			},
			{Name: "bob", Type: "person"},
			{Name: "home", Type: "house"},
		},
		Relations: []ir.RelationSpec{
			{Name: "knows", From: "alice", To: "bob"},
			{Name: "lives_in", From: "alice", To: "home", Metadata: ir.Values{"since": ir.Int(2001)}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(villageSpec(), nil))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ir.ModelSpec)
		want   string
	}{
		{
			name:   "unknown cardinality",
			mutate: func(s *ir.ModelSpec) { s.Relationships[0].Cardinality = "some_to_some" },
			want:   ErrUnknownCardinality,
		},
		{
			name:   "empty relationship name",
			mutate: func(s *ir.ModelSpec) { s.Relationships = append(s.Relationships, ir.RelationshipSpec{Source: "person", Target: "person", Cardinality: "one_to_one"}) },
			want:   ErrEmptyName,
		},
		{
			name:   "duplicate relationship",
			mutate: func(s *ir.ModelSpec) { s.Relationships = append(s.Relationships, s.Relationships[0]) },
			want:   ErrDuplicateName,
		},
		{
			name:   "relationship missing type",
			mutate: func(s *ir.ModelSpec) { s.Relationships[0].Target = "" },
			want:   ErrMissingType,
		},
		{
			name:   "entity missing type",
			mutate: func(s *ir.ModelSpec) { s.Entities[1].Type = "" },
			want:   ErrMissingType,
		},
		{
			name:   "unknown behavior",
			mutate: func(s *ir.ModelSpec) { s.Entities[0].Functions[0].Processes[0].Behavior = "teleport" },
			want:   ErrUnknownBehavior,
		},
		{
			name:   "bad behavior args",
			mutate: func(s *ir.ModelSpec) { s.Entities[0].Functions[0].Processes[0].Args = map[string]any{"by": 2} },
			want:   ErrInvalidBehaviorArgs,
		},
		{
			name:   "bad condition",
			mutate: func(s *ir.ModelSpec) { s.Entities[0].Functions[0].Processes[0].Condition.Op = "near" },
			want:   ErrInvalidCondition,
		},
		{
			name: "duplicate function",
			mutate: func(s *ir.ModelSpec) {
				s.Entities[0].Functions = append(s.Entities[0].Functions, ir.FunctionSpec{Name: "aging"})
			},
			want: ErrDuplicateName,
		},
		{
			name: "duplicate process",
			mutate: func(s *ir.ModelSpec) {
				f := &s.Entities[0].Functions[0]
				f.Processes = append(f.Processes, f.Processes[0])
			},
			want: ErrDuplicateName,
		},
		{
			name:   "undefined relationship",
			mutate: func(s *ir.ModelSpec) { s.Relations[0].Name = "hates" },
			want:   ErrUndefinedRelationship,
		},
		{
			name:   "unknown endpoint",
			mutate: func(s *ir.ModelSpec) { s.Relations[0].To = "carol" },
			want:   ErrUnknownEntity,
		},
		{
			name:   "endpoint type mismatch",
			mutate: func(s *ir.ModelSpec) { s.Relations[1].To = "bob" },
			want:   ErrRelationTypeMismatch,
		},
		{
			name: "cardinality conflict",
			mutate: func(s *ir.ModelSpec) {
				s.Relations = append(s.Relations, ir.RelationSpec{Name: "lives_in", From: "bob", To: "home"})
			},
			want: ErrCardinalityConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := villageSpec()
			tt.mutate(spec)
			assert.Contains(t, codes(Validate(spec, nil)), tt.want)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	spec := villageSpec()
	spec.Relationships[0].Cardinality = "bogus"
	spec.Entities[0].Functions[0].Processes[0].Behavior = "teleport"
	spec.Relations[0].To = "nobody"

	errs := Validate(spec, nil)
	assert.ElementsMatch(t, []string{ErrUnknownCardinality, ErrUnknownBehavior, ErrUnknownEntity}, codes(errs))
}

func TestValidateWarnings(t *testing.T) {
	spec := villageSpec()
	spec.Relationships = append(spec.Relationships, ir.RelationshipSpec{
		Name: "grazes", Source: "sheep", Target: "field", Cardinality: "many_to_one",
	})
	spec.Entities[1].Functions = []ir.FunctionSpec{{
		Name:      "breed",
		Active:    true,
		Processes: []ir.ProcessSpec{{Name: "kid", Behavior: "spawn", Args: map[string]any{"name": "kid", "type": "person"}}},
	}}

	errs := Validate(spec, nil)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.True(t, IsWarning(e.Code), e.Error())
	}
	assert.ElementsMatch(t, []string{ErrUnusedRelationshipType, ErrUnboundedSpawn}, codes(errs))
}

func TestValidateCustomRegistry(t *testing.T) {
	spec := villageSpec()
	errs := Validate(spec, behavior.NewRegistry())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownBehavior, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"increment"`)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "entities[0].type", Message: "missing", Code: ErrMissingType}
	assert.Equal(t, "[E102] entities[0].type: missing", e.Error())

	e.Line = 7
	assert.Equal(t, "[E102] line 7: entities[0].type: missing", e.Error())

	errs := ValidationErrors{e}
	assert.Contains(t, errs.Error(), "1 validation error(s)")
}
