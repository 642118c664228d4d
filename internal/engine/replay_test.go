package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/ir"
)

func TestEngine_ReplayIdentical(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m, _ := counterModel(t, 3)
	_, err := New(m, WithJournal(s), WithRunTokenGenerator(NewFixedGenerator("run-1"))).Run(ctx, 5)
	require.NoError(t, err)

	original, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	fresh, _ := counterModel(t, 3)
	result, err := New(fresh, WithJournal(s), WithRunTokenGenerator(NewFixedGenerator("run-2"))).Replay(ctx, original, s)
	require.NoError(t, err)

	assert.True(t, result.Identical(), "divergence: %v", result.Divergence)
	assert.Equal(t, "run-2", result.Summary.RunID)
	assert.Equal(t, 5, result.Summary.StepsRun)
	assert.Equal(t, original.FinalDigest, result.Summary.FinalDigest)
}

func TestEngine_ReplayDiverges(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m, _ := counterModel(t, 3)
	_, err := New(m, WithJournal(s), WithRunTokenGenerator(NewFixedGenerator("run-1"))).Run(ctx, 5)
	require.NoError(t, err)
	original, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	// Starting one tick ahead changes the first command's payload.
	fresh, c := counterModel(t, 3)
	c.State().Set("count", ir.Int(1))

	result, err := New(fresh, WithJournal(s), WithRunTokenGenerator(NewFixedGenerator("run-2"))).Replay(ctx, original, s)
	require.NoError(t, err)
	require.False(t, result.Identical())
	assert.Equal(t, int64(1), result.Divergence.Step)
	assert.Equal(t, 0, result.Divergence.Index)
	assert.Equal(t, "payload", result.Divergence.Field)
}

func TestEngine_ReplayRequiresJournal(t *testing.T) {
	s := setupTestStore(t)
	m, _ := counterModel(t, 3)

	_, err := New(m).Replay(context.Background(), ir.Run{ID: "run-1", StepsRequested: 1}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal")
	assert.Equal(t, int64(0), m.Step())
}
