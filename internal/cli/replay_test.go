package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/engine"
)

func replayOptions(format, runID string) *ReplayOptions {
	return &ReplayOptions{
		RootOptions:  &RootOptions{Format: format},
		RunGenerator: engine.NewFixedGenerator(runID),
	}
}

func TestReplayIdentical(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	modelDir := writeModel(t, colonyModel)
	recordRun(t, dbPath, modelDir, "run-1", "--steps", "5")

	out, err := execute(t, newReplayCommand(replayOptions("text", "run-2")), "--db", dbPath, modelDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay of run run-1 as run-2")
	assert.Contains(t, out, "Steps: 5 (original stopped: completed, replay stopped: completed)")
	assert.Contains(t, out, "✓ Replay identical")
	assert.NotContains(t, out, "warning")
}

func TestReplaySteadyState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	modelDir := writeModel(t, counterModel)
	recordRun(t, dbPath, modelDir, "run-1", "--steps", "20", "--stop-on-steady")

	out, err := execute(t, newReplayCommand(replayOptions("json", "run-2")), "--db", dbPath, "--run", "run-1", modelDir)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		RunID  string       `json:"run_id"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-2", resp.RunID)
	assert.True(t, resp.Data.Identical)
	assert.Equal(t, 4, resp.Data.StepsRun)
	assert.Equal(t, "steady_state", resp.Data.OriginalStop)
	assert.Equal(t, "steady_state", resp.Data.ReplayStop)
	assert.False(t, resp.Data.SpecChanged)
}

func TestReplayDivergesWithDifferentIDs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	modelDir := writeModel(t, counterModel)
	recordRun(t, dbPath, modelDir, "run-1", "--steps", "3")

	out, err := execute(t, newReplayCommand(replayOptions("json", "run-2")), "--db", dbPath, "--id-prefix", "x", modelDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "replay diverged")

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_DIVERGED", resp.Error.Code)
	assert.False(t, resp.Data.Identical)
	require.NotNil(t, resp.Data.Divergence)
	assert.Equal(t, int64(1), resp.Data.Divergence.Step)
}

func TestReplayDivergedText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	modelDir := writeModel(t, counterModel)
	recordRun(t, dbPath, modelDir, "run-1", "--steps", "3")

	out, err := execute(t, newReplayCommand(replayOptions("text", "run-2")), "--db", dbPath, "--id-prefix", "x", modelDir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Replay diverged")
}

func TestReplayChangedModel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	recordRun(t, dbPath, writeModel(t, counterModel), "run-1", "--steps", "3")

	changed := writeModel(t, colonyModel)
	out, err := execute(t, newReplayCommand(replayOptions("text", "run-2")), "--db", dbPath, changed)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "warning: the model definition changed since the original run")
}

func TestReplayRunNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	modelDir := writeModel(t, counterModel)
	recordRun(t, dbPath, modelDir, "run-1", "--steps", "1")

	_, err := execute(t, newReplayCommand(replayOptions("text", "run-2")), "--db", dbPath, "--run", "nope", modelDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestReplayEmptyJournal(t *testing.T) {
	_, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "empty.db"), writeModel(t, counterModel))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no runs in journal")
}

func TestReplayInvalidModel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sim.db")
	recordRun(t, dbPath, writeModel(t, counterModel), "run-1", "--steps", "1")

	_, err := execute(t, newReplayCommand(replayOptions("text", "run-2")), "--db", dbPath, writeModel(t, badBehaviorModel))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to build model")
}
