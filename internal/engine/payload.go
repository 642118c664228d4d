package engine

import (
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

// EncodePayload renders a command's arguments as canonical JSON for the
// journal. Conditions and actions are Go values and are recorded by process
// name and presence only.
func EncodePayload(cmd kernel.Command) (string, error) {
	obj, err := payloadObject(cmd)
	if err != nil {
		return "", err
	}
	b, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", cmd.Kind(), err)
	}
	return string(b), nil
}

func payloadObject(cmd kernel.Command) (map[string]any, error) {
	switch c := cmd.(type) {
	case kernel.UpdateEntityState:
		return withValue(map[string]any{"entity_id": string(c.EntityID), "key": c.Key}, c.Value), nil
	case kernel.DeleteEntityState:
		return map[string]any{"entity_id": string(c.EntityID), "key": c.Key}, nil
	case kernel.CreateEntity:
		return entityPayload(c.Info), nil
	case kernel.DeleteEntity:
		return map[string]any{"entity_id": string(c.EntityID)}, nil
	case kernel.CreateRelation:
		return relationPayload(c.Info), nil
	case kernel.DeleteRelation:
		return map[string]any{"relation_id": string(c.RelationID)}, nil
	case kernel.AddFunction:
		return map[string]any{"entity_id": string(c.EntityID), "function": functionPayload(c.Info)}, nil
	case kernel.RemoveFunction:
		return functionRef(c.EntityID, c.Function), nil
	case kernel.ActivateFunction:
		return functionRef(c.EntityID, c.Function), nil
	case kernel.DeactivateFunction:
		return functionRef(c.EntityID, c.Function), nil
	case kernel.UpdateFunctionParameter:
		obj := functionRef(c.EntityID, c.Function)
		obj["key"] = c.Key
		return withValue(obj, c.Value), nil
	case kernel.DeleteFunctionParameter:
		obj := functionRef(c.EntityID, c.Function)
		obj["key"] = c.Key
		return obj, nil
	case kernel.AddProcess:
		obj := functionRef(c.EntityID, c.Function)
		obj["process"] = processPayload(c.Info)
		return obj, nil
	case kernel.RemoveProcess:
		obj := functionRef(c.EntityID, c.Function)
		obj["process"] = c.Process
		return obj, nil
	case kernel.AddCondition:
		obj := functionRef(c.EntityID, c.Function)
		obj["process"] = c.Process
		obj["condition"] = c.Condition != nil
		return obj, nil
	case kernel.RemoveCondition:
		obj := functionRef(c.EntityID, c.Function)
		obj["process"] = c.Process
		return obj, nil
	case kernel.AddRelationMetadata:
		return withValue(map[string]any{"relation_id": string(c.RelationID), "key": c.Key}, c.Value), nil
	case kernel.RemoveRelationMetadata:
		return map[string]any{"relation_id": string(c.RelationID), "key": c.Key}, nil
	default:
		return nil, fmt.Errorf("unsupported command type: %T", cmd)
	}
}

// withValue sets "value" unless v is nil; canonical JSON has no null.
func withValue(obj map[string]any, v ir.Value) map[string]any {
	if v != nil {
		obj["value"] = v
	}
	return obj
}

func functionRef(entity kernel.ID, function string) map[string]any {
	return map[string]any{"entity_id": string(entity), "function": function}
}

func valuesPayload(m map[string]ir.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func entityPayload(info kernel.EntityCreationInfo) map[string]any {
	functions := make([]any, len(info.Functions))
	for i, f := range info.Functions {
		functions[i] = functionPayload(f)
	}
	relations := make([]any, len(info.Relations))
	for i, r := range info.Relations {
		relations[i] = relationPayload(r)
	}
	return map[string]any{
		"name":      info.Name,
		"type":      string(info.Type),
		"state":     valuesPayload(info.State),
		"functions": functions,
		"relations": relations,
	}
}

func functionPayload(info kernel.FunctionCreationInfo) map[string]any {
	processes := make([]any, len(info.Processes))
	for i, p := range info.Processes {
		processes[i] = processPayload(p)
	}
	return map[string]any{
		"name":       info.Name,
		"active":     info.Active,
		"parameters": valuesPayload(info.Parameters),
		"processes":  processes,
	}
}

func processPayload(info kernel.ProcessCreationInfo) map[string]any {
	return map[string]any{
		"name":      info.Name,
		"condition": info.Condition != nil,
	}
}

func relationPayload(info kernel.RelationCreationInfo) map[string]any {
	return map[string]any{
		"name":        info.Name,
		"source_id":   string(info.SourceID),
		"target_id":   string(info.TargetID),
		"target_name": info.TargetName,
		"metadata":    valuesPayload(info.Metadata),
	}
}
