package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/simkernel/internal/behavior"
	"github.com/roach88/simkernel/internal/compiler"
	"github.com/roach88/simkernel/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled model definition.
type CompilationResult struct {
	Model      *ir.ModelSpec `json:"model"`
	SpecDigest string        `json:"spec_digest"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	EntityCount       int
	RelationshipCount int
	RelationCount     int
	FunctionCount     int
	ProcessCount      int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile a CUE model to its JSON definition",
		Long: `Compile a CUE model package to the JSON model definition.

The compiler parses the CUE files, checks the model against the built-in
behaviors, and outputs the definition together with its digest. Runs
record the same digest so a replay can tell whether the model changed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, modelDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, err := LoadModel(modelDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelDir)

	var failures []compiler.ValidationError
	for _, v := range compiler.Validate(loadResult.Spec, behavior.Builtins()) {
		if compiler.IsWarning(v.Code) {
			formatter.VerboseLog("warning %s: %s: %s", v.Code, v.Field, v.Message)
			continue
		}
		failures = append(failures, v)
	}
	if len(failures) > 0 {
		return outputCompileErrors(formatter, failures)
	}

	digest, err := ir.SpecDigest(loadResult.Spec)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("computing spec digest: %v", err), nil)
	}

	result := &CompilationResult{Model: loadResult.Spec, SpecDigest: digest}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(loadResult.Spec), opts.Output)
}

// calculateStats computes summary statistics for a model.
func calculateStats(spec *ir.ModelSpec) CompilationStats {
	stats := CompilationStats{
		EntityCount:       len(spec.Entities),
		RelationshipCount: len(spec.Relationships),
		RelationCount:     len(spec.Relations),
	}
	for _, e := range spec.Entities {
		stats.FunctionCount += len(e.Functions)
		for _, f := range e.Functions {
			stats.ProcessCount += len(f.Processes)
		}
	}
	return stats
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	name := result.Model.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled model %s: %d entit%s, %d relationship(s), %d relation(s)\n\n",
		name, stats.EntityCount, plural(stats.EntityCount, "y", "ies"), stats.RelationshipCount, stats.RelationCount)

	if len(result.Model.Relationships) > 0 {
		fmt.Fprintln(formatter.Writer, "Relationships:")
		for _, r := range result.Model.Relationships {
			fmt.Fprintf(formatter.Writer, "  %s: %s → %s (%s)\n", r.Name, r.Source, r.Target, r.Cardinality)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if len(result.Model.Entities) > 0 {
		fmt.Fprintln(formatter.Writer, "Entities:")
		for _, e := range result.Model.Entities {
			processes := 0
			for _, f := range e.Functions {
				processes += len(f.Processes)
			}
			fmt.Fprintf(formatter.Writer, "  %s (%s): %d function(s), %d process(es)\n",
				e.Name, e.Type, len(e.Functions), processes)
		}
		fmt.Fprintln(formatter.Writer)
	}

	fmt.Fprintf(formatter.Writer, "Digest: %s\n", result.SpecDigest)
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote model definition to %s\n", outputFile)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// outputLoadError reports a model loading failure (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	if formatter.Format != "json" && loadErr.Pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs model validation errors found while compiling.
func outputCompileErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, e := range errs {
			cliErrors[i] = CLIError{Code: e.Code, Message: e.Message, Details: e.Field}
		}

		if err := writeResponse(formatter.Writer, CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeIRToFile writes the compilation result as indented JSON.
// Canonical JSON is only used for digests.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
