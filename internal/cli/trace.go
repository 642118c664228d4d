package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/queryir"
	"github.com/roach88/simkernel/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Kinds    []string
	FromStep int64
	ToStep   int64
	Outcome  string
	Target   string
	Limit    int
}

// TraceStep is one step of the timeline with the commands that matched.
type TraceStep struct {
	Step     int64              `json:"step"`
	Record   *ir.StepRecord     `json:"record,omitempty"`
	Commands []ir.CommandRecord `json:"commands"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      ir.Run      `json:"run"`
	Timeline []TraceStep `json:"timeline"`
	Stats    TraceStats  `json:"stats"`
}

// TraceStats summarizes the matched commands.
type TraceStats struct {
	Commands int            `json:"commands"`
	Applied  int            `json:"applied"`
	Dropped  int            `json:"dropped"`
	ByKind   map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journalled commands of a run",
		Long: `Show the step-by-step timeline of a journalled run.

Commands are listed in the order they were applied, grouped by step.
Filters combine: --kind may be repeated, --from and --to bound the step
range, --outcome selects applied or dropped commands, --target selects
commands aimed at one entity or relation.

Examples:
  simkernel trace --db ./sim.db
  simkernel trace --db ./sim.db --run 0192... --kind create_entity
  simkernel trace --db ./sim.db --outcome dropped --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				opts.Database = opts.config().Journal.Path
			}
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only commands of this kind (repeatable)")
	cmd.Flags().Int64Var(&opts.FromStep, "from", 0, "first step to include")
	cmd.Flags().Int64Var(&opts.ToStep, "to", 0, "last step to include")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only applied or dropped commands")
	cmd.Flags().StringVar(&opts.Target, "target", "", "only commands targeting this id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of commands (0 = no limit)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	q := queryir.JournalQuery{
		RunID:    run.ID,
		Kinds:    opts.Kinds,
		FromStep: opts.FromStep,
		ToStep:   opts.ToStep,
		Outcome:  queryir.Outcome(opts.Outcome),
		Target:   opts.Target,
		Limit:    opts.Limit,
	}
	if err := q.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid trace filter", err)
	}

	commands, err := st.QueryJournal(ctx, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query journal", err)
	}
	steps, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	result := TraceResult{
		Run:      run,
		Timeline: buildTimeline(steps, commands, q),
		Stats:    traceStats(commands),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// resolveRun reads the named run, or the latest run when id is empty.
func resolveRun(ctx context.Context, st *store.Store, id string) (ir.Run, error) {
	var (
		run ir.Run
		err error
	)
	if id == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return run, NewExitError(ExitCommandError, "no runs in journal")
		}
		return run, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return run, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

// buildTimeline groups commands under their steps. When the query only
// bounds steps, every step in range appears, including steps whose commands
// were all filtered out; otherwise only steps with matching commands do.
func buildTimeline(steps []ir.StepRecord, commands []ir.CommandRecord, q queryir.JournalQuery) []TraceStep {
	byStep := make(map[int64][]ir.CommandRecord)
	for _, c := range commands {
		byStep[c.Step] = append(byStep[c.Step], c)
	}

	onlyStepBounds := len(q.Kinds) == 0 && q.Outcome == queryir.OutcomeAny && q.Target == "" && q.Limit == 0
	timeline := []TraceStep{}
	seen := make(map[int64]bool)
	for i := range steps {
		s := steps[i]
		if s.Step < q.FromStep || (q.ToStep > 0 && s.Step > q.ToStep) {
			continue
		}
		cmds := byStep[s.Step]
		if len(cmds) == 0 && !onlyStepBounds {
			continue
		}
		if cmds == nil {
			cmds = []ir.CommandRecord{}
		}
		timeline = append(timeline, TraceStep{Step: s.Step, Record: &s, Commands: cmds})
		seen[s.Step] = true
	}

	// A step cut short by a failed journal write has commands but no record.
	for step, cmds := range byStep {
		if !seen[step] {
			timeline = append(timeline, TraceStep{Step: step, Commands: cmds})
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Step < timeline[j].Step })
	return timeline
}

func traceStats(commands []ir.CommandRecord) TraceStats {
	stats := TraceStats{Commands: len(commands), ByKind: map[string]int{}}
	for _, c := range commands {
		stats.ByKind[c.Kind]++
		switch c.Outcome {
		case ir.OutcomeApplied:
			stats.Applied++
		case ir.OutcomeDropped:
			stats.Dropped++
		}
	}
	return stats
}

func outputTraceJSON(w io.Writer, result TraceResult) error {
	return writeResponse(w, CLIResponse{Status: "ok", Data: result, RunID: result.Run.ID})
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	run := result.Run
	fmt.Fprintf(w, "Trace for Run: %s\n", run.ID)
	if run.Model != "" {
		fmt.Fprintf(w, "Model: %s\n", run.Model)
	}
	fmt.Fprintf(w, "Status: %s, %d/%d steps\n", stopStatus(run.StopReason), run.StepsRun, run.StepsRequested)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no commands)")
	}
	for _, step := range result.Timeline {
		if step.Record != nil {
			fmt.Fprintf(w, "  step %d: %d evaluated, %d executed, %d applied, %d dropped\n",
				step.Step, step.Record.Evaluated, step.Record.Executed, step.Record.Applied, step.Record.Dropped)
		} else {
			fmt.Fprintf(w, "  step %d: (not recorded)\n", step.Step)
		}
		for _, c := range step.Commands {
			formatCommand(w, c, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Commands: %d\n", result.Stats.Commands)
	fmt.Fprintf(w, "  Applied:  %d\n", result.Stats.Applied)
	fmt.Fprintf(w, "  Dropped:  %d\n", result.Stats.Dropped)
	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, result.Stats.ByKind[k])
	}
	return nil
}

func formatCommand(w io.Writer, c ir.CommandRecord, verbose bool) {
	target := c.Target
	if target == "" {
		target = "-"
	}
	fmt.Fprintf(w, "    [%d] %s %s %s (%s on %s)\n", c.Seq, c.Kind, target, c.Outcome, c.Process, truncateID(c.Origin))
	if c.Created != "" {
		fmt.Fprintf(w, "         created: %s\n", c.Created)
	}
	if c.Outcome == ir.OutcomeDropped && c.ErrorCode != "" {
		fmt.Fprintf(w, "         %s: %s\n", c.ErrorCode, c.Error)
	}
	if verbose {
		fmt.Fprintf(w, "         payload: %s\n", c.Payload)
	}
}

func stopStatus(reason string) string {
	if reason == "" {
		return "unfinished"
	}
	return reason
}

// truncateID shortens UUIDs for display. Short ids are kept whole.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:8] + "..."
	}
	return id
}
