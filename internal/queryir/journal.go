package queryir

import (
	"errors"
	"fmt"
)

// Outcome filters journal entries by whether the command was applied.
type Outcome string

const (
	OutcomeAny     Outcome = ""
	OutcomeApplied Outcome = "applied"
	OutcomeDropped Outcome = "dropped"
)

// JournalQuery selects command entries from a recorded run.
//
// Zero-valued fields do not filter. Results are always ordered by the
// journal's logical clock.
type JournalQuery struct {
	RunID    string   // required
	Kinds    []string // command kinds, OR-ed together
	FromStep int64    // inclusive lower bound on step (0 = unbounded)
	ToStep   int64    // inclusive upper bound on step (0 = unbounded)
	Outcome  Outcome
	Target   string // entity or relation id the command targets
	Limit    int    // 0 = no limit
}

// Validate checks the query for contradictory or missing bounds.
func (q JournalQuery) Validate() error {
	var errs []error
	if q.RunID == "" {
		errs = append(errs, errors.New("run id is required"))
	}
	if q.FromStep < 0 || q.ToStep < 0 {
		errs = append(errs, fmt.Errorf("step bounds must be non-negative (from=%d, to=%d)", q.FromStep, q.ToStep))
	}
	if q.ToStep > 0 && q.FromStep > q.ToStep {
		errs = append(errs, fmt.Errorf("from step %d is after to step %d", q.FromStep, q.ToStep))
	}
	switch q.Outcome {
	case OutcomeAny, OutcomeApplied, OutcomeDropped:
	default:
		errs = append(errs, fmt.Errorf("unknown outcome %q", q.Outcome))
	}
	if q.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit must be non-negative, got %d", q.Limit))
	}
	for i, k := range q.Kinds {
		if k == "" {
			errs = append(errs, fmt.Errorf("kinds[%d] is empty", i))
		}
	}
	return errors.Join(errs...)
}
