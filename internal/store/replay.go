package store

import (
	"context"
	"fmt"

	"github.com/roach88/simkernel/internal/ir"
)

// Divergence describes the first point where two runs differ.
type Divergence struct {
	Step   int64  `json:"step"`
	Index  int    `json:"index"` // position within the step's commands, -1 for step-level differences
	Field  string `json:"field"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	Reason string `json:"reason"`
}

func (d *Divergence) String() string {
	if d.Index < 0 {
		return fmt.Sprintf("step %d: %s differs (%q vs %q)", d.Step, d.Field, d.Left, d.Right)
	}
	return fmt.Sprintf("step %d command %d: %s differs (%q vs %q)", d.Step, d.Index, d.Field, d.Left, d.Right)
}

// CompareRuns compares two journalled runs step by step and returns the
// first divergence, or nil if both runs recorded the same behavior.
//
// Run ids and seq numbers are not compared; everything else is: per step
// the command sequence (kind, target, origin, process, outcome, error code,
// created id, payload) and then the model digest after the step.
func (s *Store) CompareRuns(ctx context.Context, left, right string) (*Divergence, error) {
	lSteps, err := s.ReadSteps(ctx, left)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	rSteps, err := s.ReadSteps(ctx, right)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	lCmds, err := s.ReadCommands(ctx, left)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	rCmds, err := s.ReadCommands(ctx, right)
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}

	lByStep := groupByStep(lCmds)
	rByStep := groupByStep(rCmds)

	n := min(len(lSteps), len(rSteps))
	for i := 0; i < n; i++ {
		step := lSteps[i].Step
		if d := compareCommands(step, lByStep[step], rByStep[rSteps[i].Step]); d != nil {
			return d, nil
		}
		if lSteps[i].Digest != rSteps[i].Digest {
			return &Divergence{
				Step:   step,
				Index:  -1,
				Field:  "digest",
				Left:   lSteps[i].Digest,
				Right:  rSteps[i].Digest,
				Reason: "model state differs after the step",
			}, nil
		}
	}

	if len(lSteps) != len(rSteps) {
		return &Divergence{
			Step:   int64(n + 1),
			Index:  -1,
			Field:  "steps",
			Left:   fmt.Sprint(len(lSteps)),
			Right:  fmt.Sprint(len(rSteps)),
			Reason: "runs recorded a different number of steps",
		}, nil
	}
	return nil, nil
}

func groupByStep(cmds []ir.CommandRecord) map[int64][]ir.CommandRecord {
	out := make(map[int64][]ir.CommandRecord)
	for _, c := range cmds {
		out[c.Step] = append(out[c.Step], c)
	}
	return out
}

func compareCommands(step int64, left, right []ir.CommandRecord) *Divergence {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		l, r := left[i], right[i]
		for _, f := range []struct {
			name        string
			left, right string
		}{
			{"kind", l.Kind, r.Kind},
			{"target", l.Target, r.Target},
			{"origin", l.Origin, r.Origin},
			{"process", l.Process, r.Process},
			{"outcome", l.Outcome, r.Outcome},
			{"error_code", l.ErrorCode, r.ErrorCode},
			{"created", l.Created, r.Created},
			{"payload", l.Payload, r.Payload},
		} {
			if f.left != f.right {
				return &Divergence{
					Step:   step,
					Index:  i,
					Field:  f.name,
					Left:   f.left,
					Right:  f.right,
					Reason: "commands differ",
				}
			}
		}
	}
	if len(left) != len(right) {
		return &Divergence{
			Step:   step,
			Index:  n,
			Field:  "count",
			Left:   fmt.Sprint(len(left)),
			Right:  fmt.Sprint(len(right)),
			Reason: "steps collected a different number of commands",
		}
	}
	return nil
}
