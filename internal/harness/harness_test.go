package harness

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
)

// counterScenario builds an inline counter model that ticks while count < limit.
func counterScenario(steps int, limit int, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "counter",
		Description: "counter ticks to its limit",
		Steps:       steps,
		Model: &ir.ModelSpec{
			Name: "counter",
			Entities: []ir.EntitySpec{{
				Name:  "clock",
				Type:  "counter",
				State: ir.Values{"count": ir.Int(0)},
				Functions: []ir.FunctionSpec{{
					Name:   "counting",
					Active: true,
					Processes: []ir.ProcessSpec{{
						Name:      "tick",
						Behavior:  "increment",
						Args:      map[string]any{"key": "count"},
						Condition: &ir.ConditionSpec{Key: "count", Op: "lt", Value: limit},
					}},
				}},
			}},
		},
		Assertions: assertions,
	}
}

func TestRun_Counter(t *testing.T) {
	scenario := counterScenario(3, 2,
		Assertion{Type: AssertStateEquals, Entity: "clock", Key: "count", Value: 2},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "test-run", result.Run.ID)
	assert.Equal(t, "counter", result.Run.Model)
	assert.Equal(t, int64(3), result.Run.StepsRun)
	assert.Equal(t, "completed", result.Run.StopReason)
	assert.NotEmpty(t, result.Run.SpecDigest)
	assert.NotEmpty(t, result.Run.FinalDigest)

	require.Len(t, result.Steps, 3)
	require.Len(t, result.Commands, 2)
	assert.Equal(t, "e-1", result.Commands[0].Target)
	assert.Equal(t, "tick", result.Commands[0].Process)
	assert.Equal(t, `{"entity_id":"e-1","key":"count","value":2}`, result.Commands[1].Payload)

	assert.Equal(t, 3, result.Summary().StepsRun)
	assert.Equal(t, 2, result.Summary().Applied)
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	scenario := counterScenario(3, 2,
		Assertion{Type: AssertStateEquals, Entity: "clock", Key: "count", Value: 5},
		Assertion{Type: AssertStepsRun, Count: 3},
		Assertion{Type: AssertEntityExists, Entity: "ghost"},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "state_equals")
	assert.Contains(t, result.Errors[1], "entity_exists")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := counterScenario(4, 3, Assertion{Type: AssertStepsRun, Count: 4})

	result1, err := Run(scenario)
	require.NoError(t, err)
	result2, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, result1.Steps, result2.Steps)
	assert.Equal(t, result1.Commands, result2.Commands)
	assert.Equal(t, result1.Run.FinalDigest, result2.Run.FinalDigest)
}

func TestRun_FreshJournalPerScenario(t *testing.T) {
	scenario := counterScenario(2, 5, Assertion{Type: AssertCommandCount, Count: 2})

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
		assert.Equal(t, int64(1), result.Commands[0].Seq, "run %d starts a fresh clock", i)
	}
}

func TestRun_RunIDAndPrefix(t *testing.T) {
	scenario := counterScenario(1, 5, Assertion{Type: AssertStepsRun, Count: 1})
	scenario.RunID = "fixed-run"
	scenario.IDPrefix = "c"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "fixed-run", result.Run.ID)
	assert.Equal(t, "c-1", result.Commands[0].Target)
}

func TestRun_StopOnSteadyState(t *testing.T) {
	scenario := counterScenario(10, 2,
		Assertion{Type: AssertStepsRun, Count: 3},
		Assertion{Type: AssertStopReason, Value: "steady_state"},
	)
	scenario.StopOnSteadyState = true

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ModelDir(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "counter_cue.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "counter", result.Run.Model)
}

func TestRun_Colony(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "colony.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	var created []string
	for _, c := range result.Commands {
		if c.Kind == "create_entity" {
			created = append(created, c.Created)
		}
	}
	assert.Len(t, created, 3)
	for _, id := range created {
		assert.NotEmpty(t, id)
	}
}

func TestRun_BuildFailure(t *testing.T) {
	scenario := counterScenario(1, 2, Assertion{Type: AssertStepsRun, Count: 1})
	scenario.Model.Entities[0].Functions[0].Processes[0].Behavior = "teleport"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build model")
}

func TestRun_MissingModel(t *testing.T) {
	_, err := Run(&Scenario{Name: "empty", ModelDir: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no model")
}

func TestRun_BadModelDir(t *testing.T) {
	scenario := counterScenario(1, 2)
	scenario.Model = nil
	scenario.ModelDir = filepath.Join("testdata", "scenarios")

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")
}

func TestHarness_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := New(WithLogger(logger))
	result, err := h.Run(context.Background(), counterScenario(1, 2, Assertion{Type: AssertStepsRun, Count: 1}))
	require.NoError(t, err)
	assert.True(t, result.Pass)

	assert.Contains(t, buf.String(), "scenario finished")
	assert.Contains(t, buf.String(), "run finished")
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("boom")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}
