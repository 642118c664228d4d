package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
)

// DefaultMaxSteps is the default maximum number of steps per run.
// This prevents a mistyped step count from running unbounded.
const DefaultMaxSteps = 100000

// Journal receives the record of a run. Implemented by *store.Store.
type Journal interface {
	BeginRun(ctx context.Context, run ir.Run) error
	WriteStep(ctx context.Context, step ir.StepRecord, commands []ir.CommandRecord) error
	FinishRun(ctx context.Context, run ir.Run) error
}

// StopReason explains why a run ended.
type StopReason string

const (
	// StopCompleted means every requested step ran.
	StopCompleted StopReason = "completed"

	// StopSteadyState means a step changed nothing and WithStopOnSteadyState was set.
	StopSteadyState StopReason = "steady_state"

	// StopCancelled means the context was cancelled between steps.
	StopCancelled StopReason = "cancelled"

	// StopFailed means the journal rejected a write.
	StopFailed StopReason = "failed"
)

// RunSummary reports the outcome of one Run call.
type RunSummary struct {
	RunID          string
	StepsRequested int
	StepsRun       int
	Applied        int
	Dropped        int
	StopReason     StopReason
	FinalDigest    string

	// CycleStart and CycleLength describe the first state cycle seen in the
	// run: the state after step CycleStart+CycleLength equals the state after
	// step CycleStart. Both are 0 when no cycle was observed.
	CycleStart  int64
	CycleLength int64

	// Reports holds the step reports in order.
	Reports []kernel.StepReport
}

// Engine runs a model step by step.
//
// Thread-safety model: an Engine and its model must only be used from one
// goroutine at a time.
type Engine struct {
	model   *kernel.Model
	clock   *Clock
	journal Journal
	metrics *Metrics
	logger  *slog.Logger
	runGen  RunTokenGenerator
	budget  StepBudget

	stopOnSteady bool
	modelName    string
	specDigest   string
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithMaxSteps sets the maximum number of steps a single run may ask for.
//
// Default: DefaultMaxSteps. A non-positive value disables the budget.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.budget = NewStepBudget(maxSteps)
	}
}

// WithJournal records every run into j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics updates m after every step.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger for run lifecycle events.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunTokenGenerator sets the source of run ids. Default: UUIDv7Generator.
func WithRunTokenGenerator(g RunTokenGenerator) Option {
	return func(e *Engine) {
		e.runGen = g
	}
}

// WithStopOnSteadyState ends a run early once a step applies no command
// and leaves the model digest unchanged.
func WithStopOnSteadyState() Option {
	return func(e *Engine) {
		e.stopOnSteady = true
	}
}

// WithModelName records the model name in run headers.
func WithModelName(name string) Option {
	return func(e *Engine) {
		e.modelName = name
	}
}

// WithSpecDigest records the digest of the model definition in run headers,
// so a replay can tell whether it is running the same definition.
func WithSpecDigest(digest string) Option {
	return func(e *Engine) {
		e.specDigest = digest
	}
}

// WithClock sets the logical clock, to continue seq numbering after an
// earlier run in the same journal.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine for model.
func New(model *kernel.Model, opts ...Option) *Engine {
	e := &Engine{
		model:  model,
		clock:  NewClock(0),
		logger: slog.New(slog.DiscardHandler),
		runGen: UUIDv7Generator{},
		budget: NewStepBudget(DefaultMaxSteps),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model the engine drives.
func (e *Engine) Model() *kernel.Model { return e.model }

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Run executes up to steps simulation steps.
//
// The context is checked before each step; a cancelled run returns the
// summary of the steps that did run together with ctx.Err(). A step that
// started always completes and is journalled.
//
// ERROR HANDLING: dropped commands are logged at Debug by the model and
// recorded in the journal; they never fail the run. Only a step budget
// violation or a journal write failure returns a *RuntimeError.
func (e *Engine) Run(ctx context.Context, steps int) (RunSummary, error) {
	if err := e.budget.Check(steps); err != nil {
		return RunSummary{StepsRequested: steps}, err
	}

	summary := RunSummary{
		RunID:          e.runGen.Generate(),
		StepsRequested: steps,
		StopReason:     StopCompleted,
	}
	run := ir.Run{
		ID:             summary.RunID,
		Model:          e.modelName,
		SpecDigest:     e.specDigest,
		KernelVersion:  ir.KernelVersion,
		IRVersion:      ir.IRVersion,
		StepsRequested: int64(steps),
		StartSeq:       e.clock.Current(),
	}

	logger := e.logger.With("run", summary.RunID)
	logger.Info("run starting", "steps", steps, "model", e.modelName)

	// Journal writes outlive cancellation: a step that ran is always recorded.
	jctx := context.WithoutCancel(ctx)
	if e.journal != nil {
		if err := e.journal.BeginRun(jctx, run); err != nil {
			summary.StopReason = StopFailed
			return summary, newJournalError(summary.RunID, 0, "begin run", err)
		}
	}

	history := NewStateHistory()
	history.Observe(e.model.Step(), e.digest(logger))

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			logger.Info("run stopping: context cancelled", "steps_run", summary.StepsRun)
			summary.StopReason = StopCancelled
			runErr = err
			break
		}

		report := e.model.Simulate()
		digest := e.digest(logger)

		summary.StepsRun++
		summary.Applied += report.Applied()
		summary.Dropped += report.Dropped()
		summary.FinalDigest = digest
		summary.Reports = append(summary.Reports, report)

		if err := e.record(jctx, summary.RunID, report, digest, logger); err != nil {
			summary.StopReason = StopFailed
			runErr = err
			break
		}
		e.metrics.observeStep(report, e.model.EntityCount(), e.model.RelationCount())

		obs := history.Observe(report.Step, digest)
		steady := obs.Unchanged && report.Applied() == 0
		if obs.Repeat && !steady && summary.CycleLength == 0 {
			summary.CycleStart = obs.FirstSeen
			summary.CycleLength = report.Step - obs.FirstSeen
			e.metrics.observeCycle()
			logger.Warn("model revisited an earlier state",
				"step", report.Step,
				"first_seen", obs.FirstSeen,
				"cycle_length", summary.CycleLength,
			)
		}
		if steady && e.stopOnSteady {
			logger.Info("run stopping: steady state", "step", report.Step)
			summary.StopReason = StopSteadyState
			break
		}
	}

	if summary.StepsRun == 0 {
		summary.FinalDigest = e.digest(logger)
	}

	if e.journal != nil && summary.StopReason != StopFailed {
		run.StepsRun = int64(summary.StepsRun)
		run.StopReason = string(summary.StopReason)
		run.FinalDigest = summary.FinalDigest
		if err := e.journal.FinishRun(jctx, run); err != nil {
			summary.StopReason = StopFailed
			return summary, newJournalError(summary.RunID, 0, "finish run", err)
		}
	}

	logger.Info("run finished",
		"steps_run", summary.StepsRun,
		"applied", summary.Applied,
		"dropped", summary.Dropped,
		"stop_reason", summary.StopReason,
	)
	return summary, runErr
}

// digest fingerprints the model, logging and returning "" on failure
// (non-finite floats in state cannot be encoded canonically).
func (e *Engine) digest(logger *slog.Logger) string {
	d, err := e.model.Digest()
	if err != nil {
		logger.Warn("model digest failed", "step", e.model.Step(), "error", err)
		return ""
	}
	return d
}

// record journals one step. The step reserves one seq per command plus one
// for its own record, which comes last.
func (e *Engine) record(ctx context.Context, runID string, report kernel.StepReport, digest string, logger *slog.Logger) error {
	seq := e.clock.Reserve(len(report.Outcomes) + 1)
	commands := make([]ir.CommandRecord, 0, len(report.Outcomes))
	for i, o := range report.Outcomes {
		commands = append(commands, e.commandRecord(runID, report.Step, seq+int64(i), o, logger))
	}
	step := ir.StepRecord{
		RunID:     runID,
		Step:      report.Step,
		Seq:       seq + int64(len(report.Outcomes)),
		Evaluated: report.Evaluated,
		Executed:  report.Executed,
		Applied:   report.Applied(),
		Dropped:   report.Dropped(),
		Entities:  e.model.EntityCount(),
		Relations: e.model.RelationCount(),
		Digest:    digest,
	}

	if e.journal == nil {
		return nil
	}
	if err := e.journal.WriteStep(ctx, step, commands); err != nil {
		logger.Error("journal write failed", "step", report.Step, "error", err)
		return newJournalError(runID, report.Step, "write step", err)
	}
	return nil
}

func (e *Engine) commandRecord(runID string, step, seq int64, o kernel.CommandOutcome, logger *slog.Logger) ir.CommandRecord {
	rec := ir.CommandRecord{
		RunID:   runID,
		Step:    step,
		Seq:     seq,
		Kind:    string(o.Command.Kind()),
		Target:  string(o.Command.Target()),
		Origin:  string(o.Origin),
		Process: o.Process,
		Outcome: outcomeLabel(o.Applied),
		Created: string(o.Created),
	}
	if o.Err != nil {
		rec.ErrorCode = string(kernel.CodeOf(o.Err))
		rec.Error = o.Err.Error()
	}
	payload, err := EncodePayload(o.Command)
	if err != nil {
		logger.Warn("command payload not journalled", "step", step, "kind", rec.Kind, "error", err)
	}
	rec.Payload = payload
	return rec
}

func outcomeLabel(applied bool) string {
	if applied {
		return ir.OutcomeApplied
	}
	return ir.OutcomeDropped
}
