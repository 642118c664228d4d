package kernel

import "github.com/roach88/simkernel/internal/ir"

// CommandKind names a command type in logs, reports and the journal.
type CommandKind string

const (
	KindUpdateEntityState       CommandKind = "update_entity_state"
	KindDeleteEntityState       CommandKind = "delete_entity_state"
	KindCreateEntity            CommandKind = "create_entity"
	KindDeleteEntity            CommandKind = "delete_entity"
	KindCreateRelation          CommandKind = "create_relation"
	KindDeleteRelation          CommandKind = "delete_relation"
	KindAddFunction             CommandKind = "add_function"
	KindRemoveFunction          CommandKind = "remove_function"
	KindActivateFunction        CommandKind = "activate_function"
	KindDeactivateFunction      CommandKind = "deactivate_function"
	KindUpdateFunctionParameter CommandKind = "update_function_parameter"
	KindDeleteFunctionParameter CommandKind = "delete_function_parameter"
	KindAddProcess              CommandKind = "add_process"
	KindRemoveProcess           CommandKind = "remove_process"
	KindAddCondition            CommandKind = "add_condition"
	KindRemoveCondition         CommandKind = "remove_condition"
	KindAddRelationMetadata     CommandKind = "add_relation_metadata"
	KindRemoveRelationMetadata  CommandKind = "remove_relation_metadata"
)

// CommandKinds lists every command kind in declaration order.
func CommandKinds() []CommandKind {
	return []CommandKind{
		KindUpdateEntityState, KindDeleteEntityState,
		KindCreateEntity, KindDeleteEntity,
		KindCreateRelation, KindDeleteRelation,
		KindAddFunction, KindRemoveFunction,
		KindActivateFunction, KindDeactivateFunction,
		KindUpdateFunctionParameter, KindDeleteFunctionParameter,
		KindAddProcess, KindRemoveProcess,
		KindAddCondition, KindRemoveCondition,
		KindAddRelationMetadata, KindRemoveRelationMetadata,
	}
}

// Command is a deferred graph mutation returned by a process action.
//
// This is a sealed interface - only the command types in this package
// implement it.
type Command interface {
	command() // Sealed

	// Kind names the command type.
	Kind() CommandKind

	// Target returns the id of the entity or relation the command acts on.
	// CreateEntity has no target; CreateRelation targets its source.
	Target() ID
}

// UpdateEntityState sets one state entry on an entity.
type UpdateEntityState struct {
	EntityID ID
	Key      string
	Value    ir.Value
}

// DeleteEntityState removes one state entry from an entity.
type DeleteEntityState struct {
	EntityID ID
	Key      string
}

// CreateEntity constructs a new entity from a creation descriptor.
type CreateEntity struct {
	Info EntityCreationInfo
}

// DeleteEntity removes an entity and everything that depends on it.
type DeleteEntity struct {
	EntityID ID
}

// CreateRelation creates a relation. Without Info.SourceID the source is the
// entity owning the emitting process.
type CreateRelation struct {
	Info RelationCreationInfo
}

// DeleteRelation removes a relation and both endpoint back-references.
type DeleteRelation struct {
	RelationID ID
}

// AddFunction adds a function to an entity, replacing one with the same name.
type AddFunction struct {
	EntityID ID
	Info     FunctionCreationInfo
}

// RemoveFunction removes a function and unregisters its processes.
type RemoveFunction struct {
	EntityID ID
	Function string
}

// ActivateFunction sets a function's active flag.
type ActivateFunction struct {
	EntityID ID
	Function string
}

// DeactivateFunction clears a function's active flag.
type DeactivateFunction struct {
	EntityID ID
	Function string
}

// UpdateFunctionParameter sets one parameter entry on a function.
type UpdateFunctionParameter struct {
	EntityID ID
	Function string
	Key      string
	Value    ir.Value
}

// DeleteFunctionParameter removes one parameter entry from a function.
type DeleteFunctionParameter struct {
	EntityID ID
	Function string
	Key      string
}

// AddProcess adds a process to a function and registers it for execution
// from the next step.
type AddProcess struct {
	EntityID ID
	Function string
	Info     ProcessCreationInfo
}

// RemoveProcess removes a process from a function and unregisters it.
type RemoveProcess struct {
	EntityID ID
	Function string
	Process  string
}

// AddCondition attaches a condition to a process, replacing any previous one.
type AddCondition struct {
	EntityID  ID
	Function  string
	Process   string
	Condition Condition
}

// RemoveCondition detaches a process's condition.
type RemoveCondition struct {
	EntityID ID
	Function string
	Process  string
}

// AddRelationMetadata sets one metadata entry on a relation.
type AddRelationMetadata struct {
	RelationID ID
	Key        string
	Value      ir.Value
}

// RemoveRelationMetadata removes one metadata entry from a relation.
type RemoveRelationMetadata struct {
	RelationID ID
	Key        string
}

// EntityCreationInfo describes an entity created by a command.
// Nested relations use the new entity as entity1.
type EntityCreationInfo struct {
	Name      string
	Type      EntityType
	State     map[string]ir.Value
	Functions []FunctionCreationInfo
	Relations []RelationCreationInfo
}

// FunctionCreationInfo describes a function created by a command.
type FunctionCreationInfo struct {
	Name       string
	Active     bool
	Parameters map[string]ir.Value
	Processes  []ProcessCreationInfo
}

// ProcessCreationInfo describes a process created by a command.
type ProcessCreationInfo struct {
	Name      string
	Condition Condition
	Action    Action
}

// RelationCreationInfo describes a relation created by a command.
// The target is TargetID when set, otherwise the first live entity named
// TargetName in creation order.
type RelationCreationInfo struct {
	Name       string
	SourceID   ID
	TargetID   ID
	TargetName string
	Metadata   map[string]ir.Value
}

func (UpdateEntityState) command()       {}
func (DeleteEntityState) command()       {}
func (CreateEntity) command()            {}
func (DeleteEntity) command()            {}
func (CreateRelation) command()          {}
func (DeleteRelation) command()          {}
func (AddFunction) command()             {}
func (RemoveFunction) command()          {}
func (ActivateFunction) command()        {}
func (DeactivateFunction) command()      {}
func (UpdateFunctionParameter) command() {}
func (DeleteFunctionParameter) command() {}
func (AddProcess) command()              {}
func (RemoveProcess) command()           {}
func (AddCondition) command()            {}
func (RemoveCondition) command()         {}
func (AddRelationMetadata) command()     {}
func (RemoveRelationMetadata) command()  {}

func (UpdateEntityState) Kind() CommandKind       { return KindUpdateEntityState }
func (DeleteEntityState) Kind() CommandKind       { return KindDeleteEntityState }
func (CreateEntity) Kind() CommandKind            { return KindCreateEntity }
func (DeleteEntity) Kind() CommandKind            { return KindDeleteEntity }
func (CreateRelation) Kind() CommandKind          { return KindCreateRelation }
func (DeleteRelation) Kind() CommandKind          { return KindDeleteRelation }
func (AddFunction) Kind() CommandKind             { return KindAddFunction }
func (RemoveFunction) Kind() CommandKind          { return KindRemoveFunction }
func (ActivateFunction) Kind() CommandKind        { return KindActivateFunction }
func (DeactivateFunction) Kind() CommandKind      { return KindDeactivateFunction }
func (UpdateFunctionParameter) Kind() CommandKind { return KindUpdateFunctionParameter }
func (DeleteFunctionParameter) Kind() CommandKind { return KindDeleteFunctionParameter }
func (AddProcess) Kind() CommandKind              { return KindAddProcess }
func (RemoveProcess) Kind() CommandKind           { return KindRemoveProcess }
func (AddCondition) Kind() CommandKind            { return KindAddCondition }
func (RemoveCondition) Kind() CommandKind         { return KindRemoveCondition }
func (AddRelationMetadata) Kind() CommandKind     { return KindAddRelationMetadata }
func (RemoveRelationMetadata) Kind() CommandKind  { return KindRemoveRelationMetadata }

func (c UpdateEntityState) Target() ID       { return c.EntityID }
func (c DeleteEntityState) Target() ID       { return c.EntityID }
func (CreateEntity) Target() ID              { return "" }
func (c DeleteEntity) Target() ID            { return c.EntityID }
func (c CreateRelation) Target() ID          { return c.Info.SourceID }
func (c DeleteRelation) Target() ID          { return c.RelationID }
func (c AddFunction) Target() ID             { return c.EntityID }
func (c RemoveFunction) Target() ID          { return c.EntityID }
func (c ActivateFunction) Target() ID        { return c.EntityID }
func (c DeactivateFunction) Target() ID      { return c.EntityID }
func (c UpdateFunctionParameter) Target() ID { return c.EntityID }
func (c DeleteFunctionParameter) Target() ID { return c.EntityID }
func (c AddProcess) Target() ID              { return c.EntityID }
func (c RemoveProcess) Target() ID           { return c.EntityID }
func (c AddCondition) Target() ID            { return c.EntityID }
func (c RemoveCondition) Target() ID         { return c.EntityID }
func (c AddRelationMetadata) Target() ID     { return c.RelationID }
func (c RemoveRelationMetadata) Target() ID  { return c.RelationID }

// derefCommand turns a pointer to a command into the command value.
// A nil pointer becomes a nil Command.
func derefCommand(c Command) Command {
	switch cmd := c.(type) {
	case *UpdateEntityState:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *DeleteEntityState:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *CreateEntity:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *DeleteEntity:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *CreateRelation:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *DeleteRelation:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *AddFunction:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *RemoveFunction:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *ActivateFunction:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *DeactivateFunction:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *UpdateFunctionParameter:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *DeleteFunctionParameter:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *AddProcess:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *RemoveProcess:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *AddCondition:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *RemoveCondition:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *AddRelationMetadata:
		if cmd == nil {
			return nil
		}
		return *cmd
	case *RemoveRelationMetadata:
		if cmd == nil {
			return nil
		}
		return *cmd
	}
	return c
}
