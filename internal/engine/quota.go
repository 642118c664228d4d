package engine

import "strconv"

// StepBudget caps the number of steps a single run may execute.
//
// A step always runs to completion, so the budget is enforced before the
// run starts rather than in the middle of it. A run over budget does not
// execute a single step.
type StepBudget struct {
	maxSteps int
}

// NewStepBudget creates a budget allowing maxSteps steps per run.
// A non-positive maxSteps disables the budget.
func NewStepBudget(maxSteps int) StepBudget {
	return StepBudget{maxSteps: maxSteps}
}

// Check validates a requested step count against the budget.
func (b StepBudget) Check(requested int) error {
	if requested < 0 {
		return &RuntimeError{
			Code:    ErrCodeInvalidSteps,
			Message: "step count must be non-negative",
			Details: map[string]string{"requested": strconv.Itoa(requested)},
		}
	}
	if b.maxSteps > 0 && requested > b.maxSteps {
		return NewBudgetError(requested, b.maxSteps)
	}
	return nil
}

// MaxSteps returns the maximum steps limit, 0 if unlimited.
func (b StepBudget) MaxSteps() int {
	return max(b.maxSteps, 0)
}
