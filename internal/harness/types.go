package harness

import (
	"github.com/roach88/simkernel/internal/engine"
	"github.com/roach88/simkernel/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Run is the journalled run header, including the stop reason and
	// final digest.
	Run ir.Run `json:"run"`

	// Steps and Commands are the journal of the run in seq order.
	// Used for command assertions and golden comparison.
	Steps    []ir.StepRecord    `json:"steps"`
	Commands []ir.CommandRecord `json:"commands"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	summary engine.RunSummary
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Steps:    []ir.StepRecord{},
		Commands: []ir.CommandRecord{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Summary returns the engine's summary of the run.
func (r *Result) Summary() engine.RunSummary {
	return r.summary
}
