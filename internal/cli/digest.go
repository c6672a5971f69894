package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracecheck/tracecheck/internal/canon"
	"github.com/tracecheck/tracecheck/internal/store"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// DigestOptions holds flags for the digest command.
type DigestOptions struct {
	*RootOptions
	Expect   string // digest to compare against
	DB       string // run-history database path
	Record   bool   // record the digest in the history database
	Scenario string // scenario name for recorded runs
}

// digestOutput is the JSON payload for the digest command.
type digestOutput struct {
	Digest   string `json:"digest"`
	Spans    int    `json:"spans"`
	Match    *bool  `json:"match,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "digest <trace-file>",
		Short: "Compute the normalized digest of a trace",
		Long: `Normalize a trace (strip volatile fields, canonicalize ordering) and
print its SHA-256 digest. The digest is stable across runs of the same
hermetic scenario, so it can be stored and compared to prove reproducibility.

With --expect, the computed digest is compared against the given value and
a mismatch fails the command.

Exit codes:
  0 - Digest computed (and matched, when comparing)
  1 - Digest mismatch
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Expect, "expect", "", "fail unless the digest equals this value")
	cmd.Flags().StringVar(&opts.DB, "db", "", "run-history database path")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the digest in the history database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario name for recorded runs (defaults to the trace file name)")

	return cmd
}

func runDigest(cmd *cobra.Command, opts *DigestOptions, tracePath string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	spans, err := trace.LoadFile(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	// Anomalies don't block digesting: the normalized projection includes
	// whatever structure was collected, orphans and all.
	tr, _ := trace.Build(spans)

	digest, err := canon.DigestTrace(tr, canon.DefaultMatchers())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute digest", err)
	}

	scenario := opts.Scenario
	if scenario == "" {
		scenario = strings.TrimSuffix(filepath.Base(tracePath), filepath.Ext(tracePath))
	}

	if opts.Record {
		if opts.DB == "" {
			return NewExitError(ExitCommandError, "--record requires --db")
		}
		st, err := store.Open(opts.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer st.Close()
		if _, err := st.RecordRun(cmd.Context(), scenario, "DIGEST", digest, nil, tr.Len()); err != nil {
			return WrapExitError(ExitCommandError, "failed to record digest", err)
		}
		slog.Debug("digest recorded", "scenario", scenario, "digest", digest)
	}

	payload := digestOutput{Digest: digest, Spans: tr.Len()}
	if opts.Expect != "" {
		match := digest == opts.Expect
		payload.Match = &match
		payload.Expected = opts.Expect
	}

	if opts.Format == "json" {
		if err := out.JSON(payload); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out.Writer, digest)
		if payload.Match != nil && !*payload.Match {
			fmt.Fprintf(out.Writer, "mismatch: expected %s\n", opts.Expect)
		}
	}

	if payload.Match != nil && !*payload.Match {
		return NewExitError(ExitFailure, "digest mismatch")
	}
	return nil
}
