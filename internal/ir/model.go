package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ModelSpec is the declarative description of a simulation model.
// It is produced by the CUE compiler or decoded from YAML and turned into a
// live kernel model by compiler.Build.
type ModelSpec struct {
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	Relationships []RelationshipSpec `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Entities      []EntitySpec       `json:"entities,omitempty" yaml:"entities,omitempty"`
	Relations     []RelationSpec     `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// RelationshipSpec declares a relationship schema entry.
type RelationshipSpec struct {
	Name        string `json:"name" yaml:"name"`
	Source      string `json:"source" yaml:"source"`
	Target      string `json:"target" yaml:"target"`
	Cardinality string `json:"cardinality" yaml:"cardinality"`
}

// EntitySpec declares an entity created during setup.
type EntitySpec struct {
	Name      string         `json:"name" yaml:"name"`
	Type      string         `json:"type" yaml:"type"`
	State     Values         `json:"state,omitempty" yaml:"state,omitempty"`
	Functions []FunctionSpec `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// FunctionSpec declares a function owned by an entity.
type FunctionSpec struct {
	Name       string        `json:"name" yaml:"name"`
	Active     bool          `json:"active" yaml:"active"`
	Parameters Values        `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Processes  []ProcessSpec `json:"processes,omitempty" yaml:"processes,omitempty"`
}

// ProcessSpec declares a process bound to a named built-in behavior.
type ProcessSpec struct {
	Name      string         `json:"name" yaml:"name"`
	Behavior  string         `json:"behavior" yaml:"behavior"`
	Args      map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ConditionSpec declares a built-in condition.
//
// Kind "compare" (the default) compares Key in Scope ("state" or
// "parameter") against Value using Op. Kind "every" is true on steps that
// are multiples of Every. Kind "always" is always true.
type ConditionSpec struct {
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Op    string `json:"op,omitempty" yaml:"op,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Every int64  `json:"every,omitempty" yaml:"every,omitempty"`
}

// RelationSpec declares a relation created during setup. Endpoints are
// entity names and resolve to the first entity created with that name.
type RelationSpec struct {
	Name     string `json:"name" yaml:"name"`
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	Metadata Values `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Values is a map of typed values with JSON and YAML codecs.
type Values map[string]Value

// Variable returns the values as a fresh Variable.
func (vs Values) Variable() *Variable {
	return VariableFrom(vs)
}

// ValuesFrom converts decoded Go values into Values.
func ValuesFrom(m map[string]any) (Values, error) {
	out := make(Values, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// MarshalJSON encodes the values as a JSON object with sorted keys.
func (vs Values) MarshalJSON() ([]byte, error) {
	return VariableFrom(vs).MarshalJSON()
}

// UnmarshalJSON decodes a JSON object of values.
func (vs *Values) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*vs = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for k, r := range raw {
		v, err := UnmarshalValue(r)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	*vs = out
	return nil
}

// MarshalYAML encodes the values as plain YAML scalars and sequences.
func (vs Values) MarshalYAML() (any, error) {
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		out[k] = ToAny(v)
	}
	return out, nil
}

// UnmarshalYAML decodes a YAML mapping of values.
func (vs *Values) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out, err := ValuesFrom(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*vs = out
	return nil
}
