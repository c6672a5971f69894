package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/internal/canon"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// DeterminismOptions holds flags for the determinism command.
type DeterminismOptions struct {
	*RootOptions
}

// NewDeterminismCommand creates the determinism command.
func NewDeterminismCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeterminismOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "determinism <trace-file> <trace-file>...",
		Short: "Check that repeated runs produced identical digests",
		Long: `Normalize and digest each collected trace, one file per iteration of
the same scenario, and require all digests to be pairwise equal. On a
mismatch, the normalized fields that first diverged from iteration 0 are
listed.

Exit codes:
  0 - All digests equal
  1 - Digests diverged
  2 - Command error`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeterminism(cmd, opts, args)
		},
	}

	return cmd
}

func runDeterminism(cmd *cobra.Command, opts *DeterminismOptions, paths []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	// Each file stands in for one sequential iteration of the scenario.
	run := func(ctx context.Context, iteration int) (*trace.Trace, error) {
		spans, err := trace.LoadFile(paths[iteration])
		if err != nil {
			return nil, err
		}
		slog.Debug("iteration loaded", "iteration", iteration, "file", paths[iteration], "spans", len(spans))
		tr, _ := trace.Build(spans)
		return tr, nil
	}

	result, err := canon.CheckDeterminism(cmd.Context(), run, len(paths), canon.DefaultMatchers())
	if err != nil {
		return WrapExitError(ExitCommandError, "determinism check aborted", err)
	}

	if opts.Format == "json" {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		printDeterminism(out, result, paths)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, "digests diverged")
	}
	return nil
}

func printDeterminism(out *OutputFormatter, result *canon.DeterminismResult, paths []string) {
	w := out.Writer
	for i, digest := range result.Digests {
		mark := "✓"
		if digest != result.Digests[0] {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s  %s\n", mark, digest, paths[i])
	}
	if result.Pass {
		fmt.Fprintf(w, "\nPASS  %d iteration(s), identical digests\n", result.Iterations)
		return
	}
	fmt.Fprintf(w, "\nFAIL  iteration %d diverged from iteration 0\n", result.DivergedAt)
	for _, d := range result.Diffs {
		fmt.Fprintf(w, "    %s: %s != %s\n", d.Path, d.Baseline, d.Actual)
	}
}
