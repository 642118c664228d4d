package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/engine"
	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	IDPrefix string

	// RunGenerator overrides the replay run id source (for testing).
	RunGenerator engine.RunTokenGenerator
}

// ReplayResult holds the outcome of re-running a journalled run.
type ReplayResult struct {
	OriginalRun  string            `json:"original_run"`
	ReplayRun    string            `json:"replay_run"`
	Model        string            `json:"model"`
	StepsRun     int               `json:"steps_run"`
	SpecChanged  bool              `json:"spec_changed"`
	Identical    bool              `json:"identical"`
	Divergence   *store.Divergence `json:"divergence,omitempty"`
	OriginalStop string            `json:"original_stop_reason"`
	ReplayStop   string            `json:"replay_stop_reason"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return newReplayCommand(&ReplayOptions{RootOptions: rootOpts})
}

func newReplayCommand(opts *ReplayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <model-dir>",
		Short: "Re-run a journalled run and verify determinism",
		Long: `Rebuild the model from its CUE package, run it again for the same
number of steps, and compare the new journal against the recorded run
step by step.

Ids must be deterministic for a replay to match: use the same
--id-prefix (or config id_prefix) the original run used. A run that
stopped at steady state is replayed with steady-state stopping enabled.

Exit codes:
  0 - The replay journalled identical behavior
  1 - The journals diverged (the first divergence is reported)
  2 - Command error (database not found, run not found, etc.)

Examples:
  simkernel replay --db ./sim.db ./models/colony
  simkernel replay --db ./sim.db --run 0192... ./models/colony --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config()
			if !cmd.Flags().Changed("db") {
				opts.Database = cfg.Journal.Path
			}
			if !cmd.Flags().Changed("id-prefix") {
				opts.IDPrefix = cfg.Run.IDPrefix
			}
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to replay (default: latest run)")
	cmd.Flags().StringVar(&opts.IDPrefix, "id-prefix", "", "entity id prefix the original run used")

	return cmd
}

func runReplay(opts *ReplayOptions, modelDir string, cmd *cobra.Command) error {
	logger := opts.logger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	original, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	loadResult, err := LoadModel(modelDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}
	spec := loadResult.Spec
	digest, err := ir.SpecDigest(spec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest model", err)
	}
	model, err := buildModel(spec, opts.IDPrefix, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build model", err)
	}

	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	engineOpts := []engine.Option{
		engine.WithJournal(st),
		engine.WithLogger(logger),
		engine.WithMaxSteps(0),
		engine.WithClock(engine.NewClock(lastSeq)),
		engine.WithModelName(spec.Name),
		engine.WithSpecDigest(digest),
	}
	if original.StopReason == string(engine.StopSteadyState) {
		engineOpts = append(engineOpts, engine.WithStopOnSteadyState())
	}
	if opts.RunGenerator != nil {
		engineOpts = append(engineOpts, engine.WithRunTokenGenerator(opts.RunGenerator))
	}

	replay, err := engine.New(model, engineOpts...).Replay(ctx, original, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		OriginalRun:  original.ID,
		ReplayRun:    replay.Summary.RunID,
		Model:        original.Model,
		StepsRun:     replay.Summary.StepsRun,
		SpecChanged:  original.SpecDigest != "" && original.SpecDigest != digest,
		Identical:    replay.Identical(),
		Divergence:   replay.Divergence,
		OriginalStop: original.StopReason,
		ReplayStop:   string(replay.Summary.StopReason),
	}

	if opts.Format == "json" {
		err = outputReplayJSON(cmd.OutOrStdout(), result)
	} else {
		err = outputReplayText(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}
	if !result.Identical {
		return NewExitError(ExitFailure, "replay diverged: "+result.Divergence.String())
	}
	return nil
}

func outputReplayJSON(w io.Writer, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result, RunID: result.ReplayRun}
	if !result.Identical {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DIVERGED",
			Message: "replay diverged from the recorded run",
			Details: result.Divergence,
		}
	}

	return writeResponse(w, response)
}

func outputReplayText(w io.Writer, result ReplayResult) error {
	fmt.Fprintf(w, "Replay of run %s as %s\n", result.OriginalRun, result.ReplayRun)
	if result.SpecChanged {
		fmt.Fprintln(w, "  warning: the model definition changed since the original run")
	}
	fmt.Fprintf(w, "  Steps: %d (original stopped: %s, replay stopped: %s)\n",
		result.StepsRun, stopStatus(result.OriginalStop), stopStatus(result.ReplayStop))
	fmt.Fprintln(w)

	if result.Identical {
		fmt.Fprintln(w, "✓ Replay identical")
		return nil
	}
	fmt.Fprintln(w, "✗ Replay diverged")
	fmt.Fprintf(w, "  %s\n", result.Divergence.String())
	if result.Divergence.Reason != "" {
		fmt.Fprintf(w, "  %s\n", result.Divergence.Reason)
	}
	return nil
}
