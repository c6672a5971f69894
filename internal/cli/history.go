package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <scenario>",
		Short: "List recorded runs for a scenario",
		Long: `List the runs recorded for a scenario in the history database, oldest
first, with verdicts and digests. Comparing the digest column across rows is
how reproducibility regressions show up.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "tracecheck.db", "run-history database path")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions, scenario string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return out.JSON(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out.Writer, "no runs recorded for scenario %q\n", scenario)
		return nil
	}
	for _, r := range runs {
		digest := r.Digest
		if digest == "" {
			digest = "-"
		}
		fmt.Fprintf(out.Writer, "%-6d %-19s %-7s %s\n", r.ID, r.CreatedAt, r.Verdict, digest)
		if out.Verbose {
			for i := range r.Violations {
				fmt.Fprintf(out.Writer, "       %s\n", r.Violations[i].String())
			}
		}
	}
	return nil
}
