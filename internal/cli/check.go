package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/internal/canon"
	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/store"
	"github.com/tracecheck/tracecheck/internal/trace"
	"github.com/tracecheck/tracecheck/internal/validate"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DB       string // run-history database path (optional)
	Scenario string // scenario name for recorded runs
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <trace-file> <spec-file>",
		Short: "Validate a trace against an expectation spec",
		Long: `Validate a collected trace against a declarative expectation spec.

The trace file is an OTLP protojson document (.json) or a fixture (.yaml);
the spec file is YAML or CUE. Every requested validator runs and the report
lists every violation, not just the first.

Exit codes:
  0 - Verdict PASS
  1 - Verdict FAIL
  2 - Command error (malformed trace, invalid spec, bad paths)

Examples:
  tracecheck check trace.json expectations.yaml
  tracecheck check trace.yaml expectations.cue --format json
  tracecheck check trace.json expectations.yaml --db runs.db --scenario checkout`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this history database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario name for recorded runs (defaults to the trace file name)")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions, tracePath, specPath string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	spans, err := trace.LoadFile(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	slog.Debug("trace loaded", "file", tracePath, "spans", len(spans))

	spec, err := expect.LoadFile(specPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load spec", err)
	}
	slog.Debug("spec loaded", "file", specPath, "sections", spec.Sections())

	tr, buildErr := trace.Build(spans)
	var malformed *trace.MalformedTraceError
	if buildErr != nil && !errors.As(buildErr, &malformed) {
		return WrapExitError(ExitCommandError, "failed to build trace", buildErr)
	}

	report, err := validate.Run(tr, spec)
	if err != nil {
		return WrapExitError(ExitCommandError, "validation aborted", err)
	}

	if opts.DB != "" {
		if err := recordCheck(cmd.Context(), opts, tracePath, tr, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	if opts.Format == "json" {
		if err := out.JSON(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if report.Verdict != validate.VerdictPass {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func recordCheck(ctx context.Context, opts *CheckOptions, tracePath string, tr *trace.Trace, report *validate.Report) error {
	scenario := opts.Scenario
	if scenario == "" {
		scenario = strings.TrimSuffix(filepath.Base(tracePath), filepath.Ext(tracePath))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	digest, err := canon.DigestTrace(tr, canon.DefaultMatchers())
	if err != nil {
		return err
	}

	id, err := st.RecordRun(ctx, scenario, string(report.Verdict), digest, report.Violations(), report.Summary.Spans)
	if err != nil {
		return err
	}
	slog.Debug("run recorded", "scenario", scenario, "run_id", id, "digest", digest)
	return nil
}

func printReport(out *OutputFormatter, report *validate.Report) {
	w := out.Writer
	for _, res := range report.Results {
		mark := "✓"
		if !res.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, res.Name)
		for i := range res.Violations {
			fmt.Fprintf(w, "    %s\n", res.Violations[i].String())
		}
	}
	fmt.Fprintf(w, "\n%s  spans=%d events=%d errors=%d\n",
		report.Verdict, report.Summary.Spans, report.Summary.Events, report.Summary.Errors)
	if report.FirstFailure != nil {
		fmt.Fprintf(w, "first failure: %s\n", report.FirstFailure.String())
	}
}
