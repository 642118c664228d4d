package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/simkernel/internal/compiler"
	"github.com/roach88/simkernel/internal/engine"
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
	"github.com/roach88/simkernel/internal/store"
)

// DefaultIDPrefix prefixes entity and relation ids when a scenario sets none.
const DefaultIDPrefix = "e"

// Harness runs scenarios through the real engine against a fresh
// in-memory journal.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes model and engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Ids come
// from a sequence generator and the run token is fixed, so the journal of a
// scenario is identical on every execution.
//
// Execution flow:
// 1. Resolve the model definition (inline or CUE directory)
// 2. Build the model and run it for the requested steps
// 3. Read the journal back from the store
// 4. Evaluate assertions against the journal and the final model
//
// An error is returned when the scenario cannot be executed. Failed
// assertions are reported in the Result instead.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := resolveModel(scenario)
	if err != nil {
		return nil, err
	}
	specDigest, err := ir.SpecDigest(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to digest model: %w", err)
	}

	prefix := scenario.IDPrefix
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	model, err := compiler.Build(spec, nil,
		kernel.WithIDGenerator(kernel.NewSequenceGenerator(prefix)),
		kernel.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []engine.Option{
		engine.WithJournal(st),
		engine.WithLogger(h.logger),
		engine.WithRunTokenGenerator(engine.NewConstantGenerator(scenario.RunID)),
		engine.WithModelName(spec.Name),
		engine.WithSpecDigest(specDigest),
	}
	if scenario.StopOnSteadyState {
		opts = append(opts, engine.WithStopOnSteadyState())
	}
	eng := engine.New(model, opts...)

	summary, err := eng.Run(ctx, scenario.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to run scenario %q: %w", scenario.Name, err)
	}

	result := NewResult()
	result.summary = summary
	if result.Run, err = st.ReadRun(ctx, summary.RunID); err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	if result.Steps, err = st.ReadSteps(ctx, summary.RunID); err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	if result.Commands, err = st.ReadCommands(ctx, summary.RunID); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	actx := &AssertionContext{
		Model:    model,
		Run:      result.Run,
		Commands: result.Commands,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps_run", summary.StepsRun,
		"pass", result.Pass,
	)
	return result, nil
}

// resolveModel returns the scenario's inline model or compiles its model
// directory.
func resolveModel(scenario *Scenario) (*ir.ModelSpec, error) {
	if scenario.Model != nil {
		return scenario.Model, nil
	}
	if scenario.ModelDir == "" {
		return nil, fmt.Errorf("scenario %q has no model", scenario.Name)
	}
	loaded, err := compiler.LoadDir(scenario.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return loaded.Spec, nil
}
