package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Variable is a mutable mapping from string keys to values.
//
// It backs entity state, function parameters and relation metadata.
// Keys are unique; there is no schema, and reading an absent key reports
// "not present" rather than a zero value.
//
// The zero value is ready to use. A Variable is not safe for concurrent
// mutation; the kernel only mutates it from the apply phase.
type Variable struct {
	values map[string]Value
}

// NewVariable creates an empty Variable.
func NewVariable() *Variable {
	return &Variable{values: make(map[string]Value)}
}

// VariableFrom builds a Variable from a map of values.
// The map is copied; later changes to m do not affect the Variable.
func VariableFrom(m map[string]Value) *Variable {
	v := &Variable{values: make(map[string]Value, len(m))}
	for k, val := range m {
		v.values[k] = CloneValue(val)
	}
	return v
}

// Get returns the value stored under key.
func (v *Variable) Get(key string) (Value, bool) {
	if v == nil || v.values == nil {
		return nil, false
	}
	val, ok := v.values[key]
	return val, ok
}

// Set inserts or replaces the value stored under key.
// Setting a nil value is ignored.
func (v *Variable) Set(key string, val Value) {
	if val == nil {
		return
	}
	if v.values == nil {
		v.values = make(map[string]Value)
	}
	v.values[key] = val
}

// Remove deletes key if present. Removing an absent key is not an error.
func (v *Variable) Remove(key string) {
	if v == nil || v.values == nil {
		return
	}
	delete(v.values, key)
}

// Has reports whether key is present.
func (v *Variable) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Len returns the number of entries.
func (v *Variable) Len() int {
	if v == nil {
		return 0
	}
	return len(v.values)
}

// Keys returns the keys in canonical (UTF-16) order.
func (v *Variable) Keys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a deep copy.
func (v *Variable) Clone() *Variable {
	if v == nil {
		return NewVariable()
	}
	return VariableFrom(v.values)
}

// Map returns a deep copy of the entries as a plain map.
func (v *Variable) Map() map[string]Value {
	out := make(map[string]Value, v.Len())
	if v == nil {
		return out
	}
	for k, val := range v.values {
		out[k] = CloneValue(val)
	}
	return out
}

// Equal reports whether both variables hold the same keys and values.
func (v *Variable) Equal(other *Variable) bool {
	if v.Len() != other.Len() {
		return false
	}
	for _, k := range v.Keys() {
		a, _ := v.Get(k)
		b, ok := other.Get(k)
		if !ok || !Equal(a, b) {
			return false
		}
	}
	return true
}

// GetInt returns the Int stored under key.
func (v *Variable) GetInt(key string) (int64, bool) {
	val, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := val.(Int)
	return int64(n), ok
}

// GetFloat returns the Float stored under key.
func (v *Variable) GetFloat(key string) (float64, bool) {
	val, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := val.(Float)
	return float64(f), ok
}

// GetNumber returns the Int or Float stored under key widened to float64.
func (v *Variable) GetNumber(key string) (float64, bool) {
	val, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return AsNumber(val)
}

// GetString returns the String stored under key.
func (v *Variable) GetString(key string) (string, bool) {
	val, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := val.(String)
	return string(s), ok
}

// GetBool returns the Bool stored under key.
func (v *Variable) GetBool(key string) (bool, bool) {
	val, ok := v.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(Bool)
	return bool(b), ok
}

// GetArray returns a copy of the Array stored under key.
func (v *Variable) GetArray(key string) (Array, bool) {
	val, ok := v.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := val.(Array)
	if !ok {
		return nil, false
	}
	return CloneValue(arr).(Array), true
}

// MarshalJSON encodes the Variable as a JSON object with sorted keys.
func (v *Variable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		val, _ := v.Get(k)
		valBytes, err := MarshalValue(val)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the Variable, replacing its content.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	v.values = make(map[string]Value, len(raw))
	for k, r := range raw {
		val, err := UnmarshalValue(r)
		if err != nil {
			return fmt.Errorf("variable key %q: %w", k, err)
		}
		v.values[k] = val
	}
	return nil
}
