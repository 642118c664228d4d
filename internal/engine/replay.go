package engine

import (
	"context"
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/store"
)

// RunComparer reports the first divergence between two journalled runs.
// Implemented by *store.Store.
type RunComparer interface {
	CompareRuns(ctx context.Context, left, right string) (*store.Divergence, error)
}

// ReplayResult pairs the summary of a re-run with its comparison against
// the original run.
type ReplayResult struct {
	Original   ir.Run
	Summary    RunSummary
	Divergence *store.Divergence
}

// Identical reports whether the re-run journalled the same behavior.
func (r ReplayResult) Identical() bool {
	return r.Divergence == nil
}

// Replay re-runs a journalled run against the engine's model and compares
// the two journals.
//
// The engine must be freshly built from the same definition as the original
// run and journal into the same store as cmp. There is no special replay
// mode: the re-run goes through Run like any other, and determinism is what
// makes the journals match. Run ids and seq numbers are not compared.
func (e *Engine) Replay(ctx context.Context, original ir.Run, cmp RunComparer) (ReplayResult, error) {
	result := ReplayResult{Original: original}
	if e.journal == nil {
		return result, fmt.Errorf("replay run %s: engine has no journal", original.ID)
	}
	if original.SpecDigest != "" && e.specDigest != "" && original.SpecDigest != e.specDigest {
		e.logger.Warn("replaying against a different model definition",
			"run", original.ID,
			"recorded", original.SpecDigest,
			"current", e.specDigest,
		)
	}

	summary, err := e.Run(ctx, int(original.StepsRequested))
	result.Summary = summary
	if err != nil {
		return result, fmt.Errorf("replay run %s: %w", original.ID, err)
	}

	d, err := cmp.CompareRuns(ctx, original.ID, summary.RunID)
	if err != nil {
		return result, fmt.Errorf("replay run %s: %w", original.ID, err)
	}
	result.Divergence = d
	return result, nil
}
