// Package engine drives a kernel.Model through simulation runs.
//
// The engine is the host loop around Model.Simulate. A run asks for a
// number of steps; the engine executes them one at a time, stamps every
// collected command with a logical clock seq, and writes each step to a
// Journal in a single transaction.
//
// Single writer:
// A run executes in the caller's goroutine. The context is checked only
// between steps, so a step is never interrupted half-applied.
//
// Determinism:
// Commands are journalled in apply order. With a deterministic id
// generator on the model and a FixedGenerator for run tokens, two runs of
// the same model produce identical journals, which is what store.CompareRuns
// and the replay command check.
//
// Termination:
// A run never executes more than MaxSteps steps (checked up-front). After
// each step the model digest is compared with the digests seen so far in
// the run: an unchanged digest with nothing applied is a steady state, any
// other repeat is a state cycle. Cycles are reported; steady states stop the
// run when WithStopOnSteadyState is set.
package engine
