package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	tests := []struct {
		v    Value
		kind Kind
	}{
		{NewInt(1), KindInt},
		{NewFloat(1.5), KindFloat},
		{NewString("a"), KindString},
		{NewBool(true), KindBool},
		{NewArray(NewInt(1)), KindArray},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.v.Kind())
	}
}

func TestEqualIsKindStrict(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.True(t, Equal(NewArray(Int(1), NewArray(String("x"))), NewArray(Int(1), NewArray(String("x")))))
	assert.False(t, Equal(NewArray(Int(1)), NewArray(Int(1), Int(2))))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(0)))
}

func TestCloneValueDetachesArrays(t *testing.T) {
	inner := NewArray(Int(1))
	orig := NewArray(inner, String("a"))

	clone := CloneValue(orig).(Array)
	clone[0].(Array)[0] = Int(99)

	assert.Equal(t, Int(1), orig[0].(Array)[0])
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
		ok   bool
	}{
		{"int lt", Int(1), Int(2), -1, true},
		{"int float eq", Int(2), Float(2), 0, true},
		{"float gt int", Float(2.5), Int(2), 1, true},
		{"strings", String("b"), String("a"), 1, true},
		{"bools", Bool(false), Bool(true), -1, true},
		{"string vs int", String("1"), Int(1), 0, false},
		{"arrays", NewArray(), NewArray(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", FormatValue(Int(42)))
	assert.Equal(t, "3.0", FormatValue(Float(3)))
	assert.Equal(t, "0.25", FormatValue(Float(0.25)))
	assert.Equal(t, `"bob"`, FormatValue(String("bob")))
	assert.Equal(t, "[1, true]", FormatValue(NewArray(Int(1), Bool(true))))
	assert.Equal(t, "<nil>", FormatValue(nil))
}

func TestMarshalValueKeepsFloatsDistinct(t *testing.T) {
	data, err := MarshalValue(Float(2))
	require.NoError(t, err)
	assert.Equal(t, "2.0", string(data))

	back, err := UnmarshalValue(data)
	require.NoError(t, err)
	assert.Equal(t, Float(2), back)

	data, err = MarshalValue(Int(2))
	require.NoError(t, err)
	back, err = UnmarshalValue(data)
	require.NoError(t, err)
	assert.Equal(t, Int(2), back)
}

func TestMarshalValueRejectsNonFinite(t *testing.T) {
	_, err := MarshalValue(Float(math.NaN()))
	assert.Error(t, err)
	_, err = MarshalValue(Float(math.Inf(1)))
	assert.Error(t, err)
}

func TestUnmarshalValueRejectsNullAndObjects(t *testing.T) {
	_, err := UnmarshalValue([]byte("null"))
	assert.Error(t, err)
	_, err = UnmarshalValue([]byte(`{"a":1}`))
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"int", 3, Int(3)},
		{"uint8", uint8(7), Int(7)},
		{"float64", 1.5, Float(1.5)},
		{"float32", float32(0.5), Float(0.5)},
		{"string", "x", String("x")},
		{"bool", true, Bool(true)},
		{"json int", json.Number("12"), Int(12)},
		{"json float", json.Number("1e3"), Float(1000)},
		{"slice", []any{1, "a"}, NewArray(Int(1), String("a"))},
		{"value passthrough", String("v"), String("v")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAnyErrors(t *testing.T) {
	_, err := FromAny(nil)
	assert.Error(t, err)

	_, err = FromAny(map[string]any{"a": 1})
	assert.Error(t, err)

	_, err = FromAny(uint64(math.MaxUint64))
	assert.Error(t, err)

	_, err = FromAny([]any{1, nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestToAnyRoundTrip(t *testing.T) {
	v := NewArray(Int(1), Float(2.5), String("s"), Bool(false))
	back, err := FromAny(ToAny(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}
