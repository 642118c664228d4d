package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name string
		cmd  kernel.Command
		want string
	}{
		{
			name: "update state",
			cmd:  kernel.UpdateEntityState{EntityID: "e-1", Key: "age", Value: ir.Int(31)},
			want: `{"entity_id":"e-1","key":"age","value":31}`,
		},
		{
			name: "update state without value",
			cmd:  kernel.UpdateEntityState{EntityID: "e-1", Key: "age"},
			want: `{"entity_id":"e-1","key":"age"}`,
		},
		{
			name: "create entity",
			cmd: kernel.CreateEntity{Info: kernel.EntityCreationInfo{
				Name:  "kid",
				Type:  "person",
				State: map[string]ir.Value{"age": ir.Int(0), "mood": ir.String("calm")},
				Relations: []kernel.RelationCreationInfo{
					{Name: "child_of", TargetID: "e-1"},
				},
			}},
			want: `{"functions":[],"name":"kid","relations":[{"metadata":{},"name":"child_of","source_id":"","target_id":"e-1","target_name":""}],"state":{"age":0,"mood":"calm"},"type":"person"}`,
		},
		{
			name: "add function",
			cmd: kernel.AddFunction{EntityID: "e-2", Info: kernel.FunctionCreationInfo{
				Name:       "grow",
				Active:     true,
				Parameters: map[string]ir.Value{"rate": ir.Float(0.5)},
				Processes:  []kernel.ProcessCreationInfo{{Name: "tick", Condition: kernel.Always}},
			}},
			want: `{"entity_id":"e-2","function":{"active":true,"name":"grow","parameters":{"rate":0.5},"processes":[{"condition":true,"name":"tick"}]}}`,
		},
		{
			name: "add condition",
			cmd:  kernel.AddCondition{EntityID: "e-1", Function: "f", Process: "p", Condition: kernel.Always},
			want: `{"condition":true,"entity_id":"e-1","function":"f","process":"p"}`,
		},
		{
			name: "relation metadata",
			cmd:  kernel.AddRelationMetadata{RelationID: "r-1", Key: "since", Value: ir.NewArray(ir.Int(1), ir.String("x"))},
			want: `{"key":"since","relation_id":"r-1","value":[1,"x"]}`,
		},
		{
			name: "delete relation",
			cmd:  kernel.DeleteRelation{RelationID: "r-1"},
			want: `{"relation_id":"r-1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodePayload(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodePayload_EveryKind(t *testing.T) {
	cmds := []kernel.Command{
		kernel.UpdateEntityState{}, kernel.DeleteEntityState{},
		kernel.CreateEntity{}, kernel.DeleteEntity{},
		kernel.CreateRelation{}, kernel.DeleteRelation{},
		kernel.AddFunction{}, kernel.RemoveFunction{},
		kernel.ActivateFunction{}, kernel.DeactivateFunction{},
		kernel.UpdateFunctionParameter{}, kernel.DeleteFunctionParameter{},
		kernel.AddProcess{}, kernel.RemoveProcess{},
		kernel.AddCondition{}, kernel.RemoveCondition{},
		kernel.AddRelationMetadata{}, kernel.RemoveRelationMetadata{},
	}
	require.Len(t, cmds, len(kernel.CommandKinds()))

	for _, cmd := range cmds {
		_, err := EncodePayload(cmd)
		assert.NoError(t, err, "kind %s", cmd.Kind())
	}
}

func TestEncodePayload_NonFiniteFloat(t *testing.T) {
	_, err := EncodePayload(kernel.UpdateEntityState{EntityID: "e-1", Key: "x", Value: ir.Float(math.Inf(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update_entity_state")
}
