package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/compiler"
	"github.com/roach88/simkernel/internal/engine"
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
	"github.com/roach88/simkernel/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	Steps        int
	MaxSteps     int
	StopOnSteady bool
	IDPrefix     string
	MetricsOut   string

	// RunGenerator overrides the run id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunGenerator engine.RunTokenGenerator
}

// RunResult is the output of the run command.
type RunResult struct {
	RunID          string `json:"run_id"`
	Model          string `json:"model"`
	StepsRequested int    `json:"steps_requested"`
	StepsRun       int    `json:"steps_run"`
	Applied        int    `json:"applied"`
	Dropped        int    `json:"dropped"`
	StopReason     string `json:"stop_reason"`
	FinalDigest    string `json:"final_digest"`
	CycleStart     int64  `json:"cycle_start,omitempty"`
	CycleLength    int64  `json:"cycle_length,omitempty"`
	Database       string `json:"database"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model-dir>",
		Short: "Run a model and journal every step",
		Long: `Build the model in the given CUE package and advance it step by step.

Every step and every command it produced is journalled to the SQLite
database (created if it doesn't exist). Defaults for --steps, --db,
--max-steps, --stop-on-steady and --id-prefix come from the config file
and SIMKERNEL_* environment variables.

Example:
  simkernel run --db ./sim.db --steps 100 ./models/colony
  simkernel run --stop-on-steady --steps 1000 ./models/counter --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyConfig(cmd)
			return runModel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "number of steps to run")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "maximum steps a run may request (0 disables)")
	cmd.Flags().BoolVar(&opts.StopOnSteady, "stop-on-steady", false, "stop once a step changes nothing")
	cmd.Flags().StringVar(&opts.IDPrefix, "id-prefix", "", `entity id prefix; ids are "<prefix>-N" (empty means UUIDv7)`)
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")

	return cmd
}

// applyConfig fills flags the user did not set from the resolved config.
func (o *RunOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.config()
	flags := cmd.Flags()
	if !flags.Changed("db") {
		o.Database = cfg.Journal.Path
	}
	if !flags.Changed("steps") {
		o.Steps = cfg.Run.Steps
	}
	if !flags.Changed("max-steps") {
		o.MaxSteps = cfg.Run.MaxSteps
	}
	if !flags.Changed("stop-on-steady") {
		o.StopOnSteady = cfg.Run.StopOnSteadyState
	}
	if !flags.Changed("id-prefix") {
		o.IDPrefix = cfg.Run.IDPrefix
	}
}

func runModel(opts *RunOptions, modelDir string, cmd *cobra.Command) error {
	logger := opts.logger()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger.Info("loading model", "dir", modelDir)
	loadResult, err := LoadModel(modelDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}
	spec := loadResult.Spec

	model, err := buildModel(spec, opts.IDPrefix, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build model", err)
	}
	digest, err := ir.SpecDigest(spec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest model", err)
	}

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	// Seqs continue across runs in one journal, even for a run that is
	// cancelled before its first step.
	lastSeq, err := st.LastSeq(context.WithoutCancel(ctx))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	reg := prometheus.NewRegistry()
	engineOpts := []engine.Option{
		engine.WithJournal(st),
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithClock(engine.NewClock(lastSeq)),
		engine.WithModelName(spec.Name),
		engine.WithSpecDigest(digest),
	}
	if opts.StopOnSteady {
		engineOpts = append(engineOpts, engine.WithStopOnSteadyState())
	}
	if opts.RunGenerator != nil {
		engineOpts = append(engineOpts, engine.WithRunTokenGenerator(opts.RunGenerator))
	}
	eng := engine.New(model, engineOpts...)

	summary, err := eng.Run(ctx, opts.Steps)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		var rtErr *engine.RuntimeError
		if errors.As(err, &rtErr) && rtErr.Code != engine.ErrCodeJournalFailed {
			return WrapExitError(ExitCommandError, "invalid run", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	if opts.MetricsOut != "" {
		if err := writeMetrics(reg, opts.MetricsOut); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		formatter.VerboseLog("Wrote metrics to %s", opts.MetricsOut)
	}

	return outputRunSummary(formatter, RunResult{
		RunID:          summary.RunID,
		Model:          spec.Name,
		StepsRequested: summary.StepsRequested,
		StepsRun:       summary.StepsRun,
		Applied:        summary.Applied,
		Dropped:        summary.Dropped,
		StopReason:     string(summary.StopReason),
		FinalDigest:    summary.FinalDigest,
		CycleStart:     summary.CycleStart,
		CycleLength:    summary.CycleLength,
		Database:       opts.Database,
	})
}

// buildModel instantiates spec with the built-in behaviors. A non-empty
// prefix makes ids deterministic, which replay relies on.
func buildModel(spec *ir.ModelSpec, idPrefix string, logger *slog.Logger) (*kernel.Model, error) {
	kopts := []kernel.Option{kernel.WithLogger(logger)}
	if idPrefix != "" {
		kopts = append(kopts, kernel.WithIDGenerator(kernel.NewSequenceGenerator(idPrefix)))
	}
	return compiler.Build(spec, nil, kopts...)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends. The engine finishes the current step first.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after current step", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func writeMetrics(g prometheus.Gatherer, path string) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func outputRunSummary(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s: %d/%d steps (%s)\n", result.RunID, result.StepsRun, result.StepsRequested, result.StopReason)
	fmt.Fprintf(w, "  Commands: %d applied, %d dropped\n", result.Applied, result.Dropped)
	if result.CycleLength > 0 {
		fmt.Fprintf(w, "  Cycle: state after step %d repeats every %d step(s)\n", result.CycleStart, result.CycleLength)
	}
	fmt.Fprintf(w, "  Digest: %s\n", result.FinalDigest)
	fmt.Fprintf(w, "  Journal: %s\n", result.Database)
	return nil
}
