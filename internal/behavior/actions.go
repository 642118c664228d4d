package behavior

import (
	"errors"
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

type incrementArgs struct {
	Key string `mapstructure:"key"`
	By  any    `mapstructure:"by"`
}

func newIncrement(args map[string]any) (kernel.Action, error) {
	var a incrementArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" {
		return nil, errors.New("key is required")
	}
	var by ir.Value = ir.Int(1)
	if a.By != nil {
		v, err := ir.FromAny(a.By)
		if err != nil {
			return nil, fmt.Errorf("by: %w", err)
		}
		if _, ok := ir.AsNumber(v); !ok {
			return nil, fmt.Errorf("by must be a number, got %s", v.Kind())
		}
		by = v
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		current, ok := ctx.Entity.Get(a.Key)
		if !ok {
			current = ir.Int(0)
		}
		next, ok := addNumbers(current, by)
		if !ok {
			return nil
		}
		return []kernel.Command{kernel.UpdateEntityState{EntityID: ctx.Entity.ID(), Key: a.Key, Value: next}}
	}, nil
}

// addNumbers adds two numeric values. Int+Int stays Int; any Float widens
// the result to Float.
func addNumbers(a, b ir.Value) (ir.Value, bool) {
	ai, aInt := a.(ir.Int)
	bi, bInt := b.(ir.Int)
	if aInt && bInt {
		return ai + bi, true
	}
	af, ok := ir.AsNumber(a)
	if !ok {
		return nil, false
	}
	bf, ok := ir.AsNumber(b)
	if !ok {
		return nil, false
	}
	return ir.Float(af + bf), true
}

type setArgs struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

func newSet(args map[string]any) (kernel.Action, error) {
	var a setArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" {
		return nil, errors.New("key is required")
	}
	v, err := ir.FromAny(a.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		return []kernel.Command{kernel.UpdateEntityState{EntityID: ctx.Entity.ID(), Key: a.Key, Value: v}}
	}, nil
}

type unsetArgs struct {
	Key string `mapstructure:"key"`
}

func newUnset(args map[string]any) (kernel.Action, error) {
	var a unsetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" {
		return nil, errors.New("key is required")
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		if _, ok := ctx.Entity.Get(a.Key); !ok {
			return nil
		}
		return []kernel.Command{kernel.DeleteEntityState{EntityID: ctx.Entity.ID(), Key: a.Key}}
	}, nil
}

type scaleArgs struct {
	Key    string  `mapstructure:"key"`
	Factor float64 `mapstructure:"factor"`
}

func newScale(args map[string]any) (kernel.Action, error) {
	var a scaleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" {
		return nil, errors.New("key is required")
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		current, ok := ctx.Entity.Get(a.Key)
		if !ok {
			return nil
		}
		n, ok := ir.AsNumber(current)
		if !ok {
			return nil
		}
		return []kernel.Command{kernel.UpdateEntityState{EntityID: ctx.Entity.ID(), Key: a.Key, Value: ir.Float(n * a.Factor)}}
	}, nil
}

type spawnArgs struct {
	Name     string         `mapstructure:"name"`
	Type     string         `mapstructure:"type"`
	State    map[string]any `mapstructure:"state"`
	Relation string         `mapstructure:"relation"`
	Max      int            `mapstructure:"max"`
}

// newSpawn creates an entity named Name. With Relation set the child is
// related to the spawner (child as entity1). With Max set no entity is
// spawned once Max entities of the name exist.
func newSpawn(args map[string]any) (kernel.Action, error) {
	var a spawnArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Name == "" || a.Type == "" {
		return nil, errors.New("name and type are required")
	}
	if a.Max < 0 {
		return nil, fmt.Errorf("max must be non-negative, got %d", a.Max)
	}
	state, err := ir.ValuesFrom(a.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		if a.Max > 0 && len(ctx.Model.EntitiesByName(a.Name)) >= a.Max {
			return nil
		}
		info := kernel.EntityCreationInfo{
			Name:  a.Name,
			Type:  kernel.EntityType(a.Type),
			State: state,
		}
		if a.Relation != "" {
			info.Relations = []kernel.RelationCreationInfo{{Name: a.Relation, TargetID: ctx.Entity.ID()}}
		}
		return []kernel.Command{kernel.CreateEntity{Info: info}}
	}, nil
}

type linkArgs struct {
	Relation string `mapstructure:"relation"`
	Target   string `mapstructure:"target"`
	ToType   string `mapstructure:"to_type"`
}

// newLink relates the entity to the entity named Target, or to every other
// entity of type ToType it is not yet related to under Relation.
func newLink(args map[string]any) (kernel.Action, error) {
	var a linkArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Relation == "" {
		return nil, errors.New("relation is required")
	}
	if (a.Target == "") == (a.ToType == "") {
		return nil, errors.New("exactly one of target and to_type is required")
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		if a.Target != "" {
			return []kernel.Command{kernel.CreateRelation{Info: kernel.RelationCreationInfo{
				Name:       a.Relation,
				SourceID:   ctx.Entity.ID(),
				TargetName: a.Target,
			}}}
		}
		linked := make(map[kernel.ID]bool)
		for _, r := range ctx.Entity.Relations(a.Relation) {
			linked[r.Other(ctx.Entity.ID())] = true
		}
		var cmds []kernel.Command
		for _, other := range ctx.Model.EntitiesByType(kernel.EntityType(a.ToType)) {
			if other.ID() == ctx.Entity.ID() || linked[other.ID()] {
				continue
			}
			cmds = append(cmds, kernel.CreateRelation{Info: kernel.RelationCreationInfo{
				Name:     a.Relation,
				SourceID: ctx.Entity.ID(),
				TargetID: other.ID(),
			}})
		}
		return cmds
	}, nil
}

type relationArgs struct {
	Relation string `mapstructure:"relation"`
}

func newUnlink(args map[string]any) (kernel.Action, error) {
	var a relationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Relation == "" {
		return nil, errors.New("relation is required")
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		var cmds []kernel.Command
		for _, r := range ctx.Entity.Relations(a.Relation) {
			cmds = append(cmds, kernel.DeleteRelation{RelationID: r.ID()})
		}
		return cmds
	}, nil
}

func newDeleteSelf(args map[string]any) (kernel.Action, error) {
	if err := decodeArgs(args, &struct{}{}); err != nil {
		return nil, err
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		return []kernel.Command{kernel.DeleteEntity{EntityID: ctx.Entity.ID()}}
	}, nil
}

func newDeactivateSelf(args map[string]any) (kernel.Action, error) {
	if err := decodeArgs(args, &struct{}{}); err != nil {
		return nil, err
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		return []kernel.Command{kernel.DeactivateFunction{EntityID: ctx.Entity.ID(), Function: ctx.Function.Name()}}
	}, nil
}

type toggleArgs struct {
	Function string `mapstructure:"function"`
	Active   bool   `mapstructure:"active"`
}

func newToggleFunction(args map[string]any) (kernel.Action, error) {
	var a toggleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Function == "" {
		return nil, errors.New("function is required")
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		if a.Active {
			return []kernel.Command{kernel.ActivateFunction{EntityID: ctx.Entity.ID(), Function: a.Function}}
		}
		return []kernel.Command{kernel.DeactivateFunction{EntityID: ctx.Entity.ID(), Function: a.Function}}
	}, nil
}

type tagArgs struct {
	Relation string `mapstructure:"relation"`
	Key      string `mapstructure:"key"`
	Value    any    `mapstructure:"value"`
}

func newTagRelations(args map[string]any) (kernel.Action, error) {
	var a tagArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Relation == "" || a.Key == "" {
		return nil, errors.New("relation and key are required")
	}
	v, err := ir.FromAny(a.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return func(ctx *kernel.ExecutionContext) []kernel.Command {
		var cmds []kernel.Command
		for _, r := range ctx.Entity.Relations(a.Relation) {
			if current, ok := r.Metadata().Get(a.Key); ok && ir.Equal(current, v) {
				continue
			}
			cmds = append(cmds, kernel.AddRelationMetadata{RelationID: r.ID(), Key: a.Key, Value: v})
		}
		return cmds
	}, nil
}
