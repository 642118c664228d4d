package kernel

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes kernel errors.
type ErrorCode string

const (
	// CodeEntityNotFound indicates a referenced entity id is not in the model.
	CodeEntityNotFound ErrorCode = "ENTITY_NOT_FOUND"

	// CodeRelationNotFound indicates a referenced relation id is not in the model.
	CodeRelationNotFound ErrorCode = "RELATION_NOT_FOUND"

	// CodeRelationAlreadyExists indicates a conflicting relationship
	// redefinition under WithStrictRelationships.
	CodeRelationAlreadyExists ErrorCode = "RELATION_ALREADY_EXISTS"

	// CodeInvalidRelationType indicates a cardinality violation.
	CodeInvalidRelationType ErrorCode = "INVALID_RELATION_TYPE"

	// CodeUndefinedRelation indicates no relationship definition exists for a name.
	CodeUndefinedRelation ErrorCode = "UNDEFINED_RELATION"

	// CodeInvalidRelationEntityTypes indicates endpoint types do not match the definition.
	CodeInvalidRelationEntityTypes ErrorCode = "INVALID_RELATION_ENTITY_TYPES"

	// CodeUnresolvedEndpoint indicates a relation endpoint given by name
	// matched no entity during deferred creation.
	CodeUnresolvedEndpoint ErrorCode = "UNRESOLVED_ENDPOINT"

	// CodeFunctionNotFound indicates a command referenced a missing function.
	CodeFunctionNotFound ErrorCode = "FUNCTION_NOT_FOUND"

	// CodeProcessNotFound indicates a command referenced a missing process.
	CodeProcessNotFound ErrorCode = "PROCESS_NOT_FOUND"

	// CodeInvalidCommand indicates a malformed command (nil value, empty name).
	CodeInvalidCommand ErrorCode = "INVALID_COMMAND"
)

// Sentinels for errors.Is. A *Error matches the sentinel with the same code.
var (
	ErrEntityNotFound             = &Error{Code: CodeEntityNotFound}
	ErrRelationNotFound           = &Error{Code: CodeRelationNotFound}
	ErrRelationAlreadyExists      = &Error{Code: CodeRelationAlreadyExists}
	ErrInvalidRelationType        = &Error{Code: CodeInvalidRelationType}
	ErrUndefinedRelation          = &Error{Code: CodeUndefinedRelation}
	ErrInvalidRelationEntityTypes = &Error{Code: CodeInvalidRelationEntityTypes}
	ErrUnresolvedEndpoint         = &Error{Code: CodeUnresolvedEndpoint}
	ErrFunctionNotFound           = &Error{Code: CodeFunctionNotFound}
	ErrProcessNotFound            = &Error{Code: CodeProcessNotFound}
	ErrInvalidCommand             = &Error{Code: CodeInvalidCommand}
)

// Error is the structured error returned by setup calls and recorded for
// dropped commands.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntityID identifies the affected entity, if any.
	EntityID ID

	// RelationID identifies the affected relation, if any.
	RelationID ID

	// Relation is the relationship name involved, if any.
	Relation string

	// Cardinality is set for cardinality violations.
	Cardinality Cardinality
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	switch {
	case e.Relation != "" && e.Cardinality.Valid():
		msg += fmt.Sprintf(" (relation=%s, cardinality=%s)", e.Relation, e.Cardinality)
	case e.Relation != "":
		msg += fmt.Sprintf(" (relation=%s)", e.Relation)
	}
	return msg
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// IsNotFound reports whether err reports a missing entity, relation,
// function or process.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeEntityNotFound, CodeRelationNotFound, CodeFunctionNotFound, CodeProcessNotFound:
		return true
	}
	return false
}

func entityNotFound(id ID) *Error {
	return &Error{Code: CodeEntityNotFound, Message: fmt.Sprintf("entity %s not found", id), EntityID: id}
}

func relationNotFound(id ID) *Error {
	return &Error{Code: CodeRelationNotFound, Message: fmt.Sprintf("relation %s not found", id), RelationID: id}
}

func functionNotFound(id ID, fn string) *Error {
	return &Error{Code: CodeFunctionNotFound, Message: fmt.Sprintf("function %q not found on entity %s", fn, id), EntityID: id}
}

func processNotFound(id ID, fn, proc string) *Error {
	return &Error{Code: CodeProcessNotFound, Message: fmt.Sprintf("process %q not found in function %q on entity %s", proc, fn, id), EntityID: id}
}

func invalidCommand(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidCommand, Message: fmt.Sprintf(format, args...)}
}
