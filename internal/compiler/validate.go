package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/simkernel/internal/behavior"
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyName              = "E101" // entity, function, process or relationship name is empty
	ErrMissingType            = "E102" // entity type or relationship endpoint type is empty
	ErrUnknownCardinality     = "E103" // cardinality is not one of the four classes
	ErrDuplicateName          = "E104" // duplicate relationship, function or process name
	ErrUnknownBehavior        = "E105" // process names an unregistered behavior
	ErrInvalidBehaviorArgs    = "E106" // behavior factory rejected the args
	ErrInvalidCondition       = "E107" // condition cannot be built
	ErrUndefinedRelationship  = "E110" // relation names an undefined relationship
	ErrUnknownEntity          = "E111" // relation endpoint names no entity
	ErrRelationTypeMismatch   = "E112" // relation endpoints do not match the relationship types
	ErrCardinalityConflict    = "E113" // setup relations violate the relationship's cardinality
	ErrUnusedRelationshipType = "E120" // relationship references an entity type no entity has
	ErrUnboundedSpawn         = "E121" // spawn process has no max
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by Build when a spec fails validation.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(errs), strings.Join(parts, "; "))
}

// IsWarning reports whether the code flags a suspicious but buildable spec.
func IsWarning(code string) bool {
	return code == ErrUnusedRelationshipType || code == ErrUnboundedSpawn
}

// Validate checks a model spec against the behavior registry.
// Returns all problems found (does not fail-fast). A nil registry means the
// built-in behaviors.
//
// Relations are checked statically against the setup entities: endpoint
// names resolve to the first entity with that name, as Build does.
func Validate(spec *ir.ModelSpec, behaviors *behavior.Registry) []ValidationError {
	if behaviors == nil {
		behaviors = behavior.Builtins()
	}
	var errs []ValidationError

	defs := make(map[string]ir.RelationshipSpec)
	for i, rel := range spec.Relationships {
		field := fmt.Sprintf("relationships[%d]", i)
		if strings.TrimSpace(rel.Name) == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "relationship name is required", Code: ErrEmptyName})
		}
		if _, dup := defs[rel.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate relationship name: %q", rel.Name),
				Code:    ErrDuplicateName,
			})
		}
		defs[rel.Name] = rel

		if rel.Source == "" || rel.Target == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relationship %q needs source and target types", rel.Name),
				Code:    ErrMissingType,
			})
		}
		if _, err := kernel.ParseCardinality(rel.Cardinality); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".cardinality",
				Message: err.Error(),
				Code:    ErrUnknownCardinality,
			})
		}
	}

	firstByName := make(map[string]ir.EntitySpec)
	types := make(map[string]bool)
	for i, e := range spec.Entities {
		errs = append(errs, validateEntity(fmt.Sprintf("entities[%d]", i), e, behaviors)...)
		if _, seen := firstByName[e.Name]; !seen {
			firstByName[e.Name] = e
		}
		types[e.Type] = true
	}

	errs = append(errs, validateRelations(spec.Relations, defs, firstByName)...)

	for i, rel := range spec.Relationships {
		for _, t := range []string{rel.Source, rel.Target} {
			if t != "" && !types[t] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("relationships[%d]", i),
					Message: fmt.Sprintf("relationship %q references type %q which no setup entity has", rel.Name, t),
					Code:    ErrUnusedRelationshipType,
				})
				break
			}
		}
	}

	return errs
}

func validateEntity(field string, e ir.EntitySpec, behaviors *behavior.Registry) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, ValidationError{Field: field + ".name", Message: "entity name is required", Code: ErrEmptyName})
	}
	if strings.TrimSpace(e.Type) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("entity %q has no type", e.Name),
			Code:    ErrMissingType,
		})
	}

	functions := make(map[string]bool)
	for i, f := range e.Functions {
		ff := fmt.Sprintf("%s.functions[%d]", field, i)
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{Field: ff + ".name", Message: "function name is required", Code: ErrEmptyName})
		}
		if functions[f.Name] {
			errs = append(errs, ValidationError{
				Field:   ff + ".name",
				Message: fmt.Sprintf("duplicate function name %q on entity %q", f.Name, e.Name),
				Code:    ErrDuplicateName,
			})
		}
		functions[f.Name] = true

		processes := make(map[string]bool)
		for j, p := range f.Processes {
			pf := fmt.Sprintf("%s.processes[%d]", ff, j)
			if strings.TrimSpace(p.Name) == "" {
				errs = append(errs, ValidationError{Field: pf + ".name", Message: "process name is required", Code: ErrEmptyName})
			}
			if processes[p.Name] {
				errs = append(errs, ValidationError{
					Field:   pf + ".name",
					Message: fmt.Sprintf("duplicate process name %q in function %q", p.Name, f.Name),
					Code:    ErrDuplicateName,
				})
			}
			processes[p.Name] = true
			errs = append(errs, validateProcess(pf, p, behaviors)...)
		}
	}
	return errs
}

func validateProcess(field string, p ir.ProcessSpec, behaviors *behavior.Registry) []ValidationError {
	var errs []ValidationError
	if !behaviors.Has(p.Behavior) {
		errs = append(errs, ValidationError{
			Field:   field + ".behavior",
			Message: fmt.Sprintf("unknown behavior %q, available: %s", p.Behavior, strings.Join(behaviors.Names(), ", ")),
			Code:    ErrUnknownBehavior,
		})
	} else if _, err := behaviors.Action(p.Behavior, p.Args); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".args",
			Message: err.Error(),
			Code:    ErrInvalidBehaviorArgs,
		})
	}
	if p.Behavior == "spawn" && p.Args["max"] == nil {
		errs = append(errs, ValidationError{
			Field:   field + ".args.max",
			Message: fmt.Sprintf("process %q spawns without a max and grows the model every step it runs", p.Name),
			Code:    ErrUnboundedSpawn,
		})
	}
	if _, err := behavior.Condition(p.Condition); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".condition",
			Message: err.Error(),
			Code:    ErrInvalidCondition,
		})
	}
	return errs
}

// validateRelations replays the setup relations against the relationship
// definitions, including the cardinality checks the kernel applies.
func validateRelations(relations []ir.RelationSpec, defs map[string]ir.RelationshipSpec, entities map[string]ir.EntitySpec) []ValidationError {
	var errs []ValidationError
	used := make(map[string]map[string]bool) // relationship name -> endpoint name -> has relation

	for i, r := range relations {
		field := fmt.Sprintf("relations[%d]", i)
		def, ok := defs[r.Name]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("relationship %q is not defined", r.Name),
				Code:    ErrUndefinedRelationship,
			})
			continue
		}

		from, fromOK := entities[r.From]
		to, toOK := entities[r.To]
		if !fromOK {
			errs = append(errs, ValidationError{Field: field + ".from", Message: fmt.Sprintf("no entity named %q", r.From), Code: ErrUnknownEntity})
		}
		if !toOK {
			errs = append(errs, ValidationError{Field: field + ".to", Message: fmt.Sprintf("no entity named %q", r.To), Code: ErrUnknownEntity})
		}
		if !fromOK || !toOK {
			continue
		}
		if from.Type != def.Source || to.Type != def.Target {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relationship %q connects %s -> %s, got %s -> %s", r.Name, def.Source, def.Target, from.Type, to.Type),
				Code:    ErrRelationTypeMismatch,
			})
			continue
		}

		card, err := kernel.ParseCardinality(def.Cardinality)
		if err != nil {
			continue
		}
		if used[r.Name] == nil {
			used[r.Name] = make(map[string]bool)
		}
		seen := used[r.Name]
		var conflict bool
		switch card {
		case kernel.OneToOne:
			conflict = seen[r.From] || seen[r.To]
		case kernel.OneToMany:
			conflict = seen[r.From]
		case kernel.ManyToOne:
			conflict = seen[r.To]
		}
		if conflict {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relation %q from %q to %q violates %s", r.Name, r.From, r.To, card),
				Code:    ErrCardinalityConflict,
			})
			continue
		}
		seen[r.From] = true
		seen[r.To] = true
	}
	return errs
}
