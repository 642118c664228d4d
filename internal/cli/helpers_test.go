package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/engine"
)

// counterModel ticks count up to 3 and then stays put.
const counterModel = `
package model

name: "counter"

entity: clock: {
	type: "counter"
	state: count: 0
	function: counting: {
		active: true
		process: tick: {
			behavior: "increment"
			args: key: "count"
			condition: {key: "count", op: "lt", value: 3}
		}
	}
}
`

// colonyModel has a queen that spawns at most three ants.
const colonyModel = `
package model

name: "colony"

relationship: child_of: {source: "ant", target: "queen", cardinality: "one_to_many"}

entity: queen: {
	type: "queen"
	function: breeding: {
		active: true
		process: lay: {
			behavior: "spawn"
			args: {name: "ant", type: "ant", relation: "child_of", max: 3}
		}
	}
}
`

// badBehaviorModel names a behavior that does not exist.
const badBehaviorModel = `
package model

name: "bad"

entity: clock: {
	type: "counter"
	function: counting: {
		active: true
		process: tick: behavior: "teleport"
	}
}
`

// unboundedModel spawns without a max, which is only a warning.
const unboundedModel = `
package model

name: "unbounded"

entity: queen: {
	type: "queen"
	function: breeding: {
		active: true
		process: lay: {
			behavior: "spawn"
			args: {name: "ant", type: "ant"}
		}
	}
}
`

// writeModel writes src as model.cue in a fresh directory under t.TempDir.
func writeModel(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(src), 0644))
	return dir
}

// execute runs cmd with args and returns stdout and the command error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// recordRun runs the model in modelDir into dbPath under runID.
func recordRun(t *testing.T, dbPath, modelDir, runID string, args ...string) {
	t.Helper()
	opts := &RunOptions{
		RootOptions:  &RootOptions{Format: "text"},
		RunGenerator: engine.NewFixedGenerator(runID),
	}
	_, err := execute(t, newRunCommand(opts), append([]string{"--db", dbPath, modelDir}, args...)...)
	require.NoError(t, err)
}
