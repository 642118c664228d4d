package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run header with minimal required fields.
func createTestRun(id string) ir.Run {
	return ir.Run{
		ID:             id,
		Model:          "test-model",
		SpecDigest:     "test-digest",
		KernelVersion:  ir.KernelVersion,
		IRVersion:      ir.IRVersion,
		StepsRequested: 3,
	}
}

// createTestCommand creates an applied command record.
func createTestCommand(runID string, step, seq int64, kind, target string) ir.CommandRecord {
	return ir.CommandRecord{
		RunID:   runID,
		Step:    step,
		Seq:     seq,
		Kind:    kind,
		Target:  target,
		Origin:  target,
		Process: "p",
		Outcome: ir.OutcomeApplied,
		Payload: `{}`,
	}
}

// writeRun journals a run whose steps each hold the given commands.
func writeRun(t *testing.T, s *Store, id string, steps [][]ir.CommandRecord) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, createTestRun(id)))

	var seq int64
	for i, cmds := range steps {
		step := int64(i + 1)
		for j := range cmds {
			seq++
			cmds[j].RunID = id
			cmds[j].Step = step
			cmds[j].Seq = seq
		}
		seq++
		require.NoError(t, s.WriteStep(ctx, ir.StepRecord{
			RunID:   id,
			Step:    step,
			Seq:     seq,
			Applied: len(cmds),
			Digest:  "d" + string(rune('0'+step)),
		}, cmds))
	}
}
