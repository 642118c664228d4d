package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleModelYAML = `
name: village
relationships:
  - name: knows
    source: person
    target: person
    cardinality: many_to_many
entities:
  - name: John
    type: person
    state:
      age: 30
      height: 1.8
      tags: [farmer, "elder"]
    functions:
      - name: aging
        active: true
        parameters:
          rate: 1
        processes:
          - name: grow_older
            behavior: increment
            args:
              key: age
              by: 1
            condition:
              kind: every
              every: 2
relations:
  - name: knows
    from: John
    to: John
    metadata:
      since: 1990
`

func TestModelSpecYAML(t *testing.T) {
	var spec ModelSpec
	require.NoError(t, yaml.Unmarshal([]byte(sampleModelYAML), &spec))

	require.Len(t, spec.Entities, 1)
	john := spec.Entities[0]
	assert.Equal(t, Int(30), john.State["age"])
	assert.Equal(t, Float(1.8), john.State["height"])
	assert.Equal(t, NewArray(String("farmer"), String("elder")), john.State["tags"])

	require.Len(t, john.Functions, 1)
	fn := john.Functions[0]
	assert.True(t, fn.Active)
	assert.Equal(t, Int(1), fn.Parameters["rate"])
	require.Len(t, fn.Processes, 1)
	assert.Equal(t, "increment", fn.Processes[0].Behavior)
	assert.Equal(t, "age", fn.Processes[0].Args["key"])
	require.NotNil(t, fn.Processes[0].Condition)
	assert.Equal(t, int64(2), fn.Processes[0].Condition.Every)

	require.Len(t, spec.Relations, 1)
	assert.Equal(t, Int(1990), spec.Relations[0].Metadata["since"])
}

func TestModelSpecYAMLRejectsNestedState(t *testing.T) {
	var spec ModelSpec
	err := yaml.Unmarshal([]byte(`
entities:
  - name: a
    type: t
    state:
      nested: {x: 1}
`), &spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestModelSpecJSONRoundTrip(t *testing.T) {
	var spec ModelSpec
	require.NoError(t, yaml.Unmarshal([]byte(sampleModelYAML), &spec))

	data, err := json.Marshal(spec)
	require.NoError(t, err)

	var back ModelSpec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, spec.Entities[0].State, back.Entities[0].State)
	assert.Equal(t, spec.Relations[0].Metadata, back.Relations[0].Metadata)
}

func TestValuesVariable(t *testing.T) {
	vs := Values{"a": Int(1)}
	v := vs.Variable()
	vs["a"] = Int(2)

	got, ok := v.GetInt("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), got)
}
