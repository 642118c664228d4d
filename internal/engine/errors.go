package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while running a model.
//
// Runtime errors include:
//   - Step budget exceeded: a run asked for more than MaxSteps steps
//   - Journal failure: the journal rejected a run header or step
//
// Dropped commands are not runtime errors; they are recorded in the step
// report and the journal.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if one was started.
	RunID string

	// Step is the step being journalled, 0 for run-level errors.
	Step int64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStepBudgetExceeded indicates a run asked for more steps than allowed.
	ErrCodeStepBudgetExceeded RuntimeErrorCode = "STEP_BUDGET_EXCEEDED"

	// ErrCodeInvalidSteps indicates a negative step count.
	ErrCodeInvalidSteps RuntimeErrorCode = "INVALID_STEPS"

	// ErrCodeJournalFailed indicates the journal rejected a write.
	ErrCodeJournalFailed RuntimeErrorCode = "JOURNAL_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RunID != "" && e.Step > 0:
		msg += fmt.Sprintf(" (run=%s, step=%d)", e.RunID, e.Step)
	case e.RunID != "":
		msg += fmt.Sprintf(" (run=%s)", e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsBudgetError returns true if the error is a step budget error.
// Uses errors.As to handle wrapped errors.
func IsBudgetError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStepBudgetExceeded
	}
	return false
}

// IsJournalError returns true if the error came from the journal.
func IsJournalError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeJournalFailed
	}
	return false
}

// NewBudgetError creates a RuntimeError for a run over the step budget.
func NewBudgetError(requested, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStepBudgetExceeded,
		Message: fmt.Sprintf("run requested %d steps, budget is %d", requested, maxSteps),
		Details: map[string]string{
			"requested": fmt.Sprintf("%d", requested),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}

func newJournalError(runID string, step int64, op string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeJournalFailed,
		Message: op,
		RunID:   runID,
		Step:    step,
		Err:     err,
	}
}
