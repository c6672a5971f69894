// Package validate checks a finalized trace against an expectation spec.
//
// The seven validators are a closed set dispatched by the orchestrator, each
// a pure function of (trace, sub-spec) returning a violation list. Nothing in
// this package mutates the trace or performs I/O, so validators can run in
// any order and a validation run is reproducible by construction.
package validate

import (
	"fmt"
	"strings"
)

// Validator name constants, in report precedence order.
const (
	ValidatorSpan        = "span"
	ValidatorGraph       = "graph"
	ValidatorCount       = "count"
	ValidatorWindow      = "window"
	ValidatorOrder       = "order"
	ValidatorStatus      = "status"
	ValidatorHermeticity = "hermeticity"
)

// Verdict is the overall outcome of a validation run.
type Verdict string

const (
	// VerdictPass means every requested validator reported clean.
	VerdictPass Verdict = "PASS"

	// VerdictFail means at least one validator reported a violation.
	VerdictFail Verdict = "FAIL"
)

// Violation is one constraint failure. Violations are report entries, never
// errors: a run surfaces every problem rather than stopping at the first.
type Violation struct {
	// Validator names the validator that detected the violation.
	Validator string `json:"validator"`

	// Rule identifies the violated constraint within the validator,
	// e.g. "must_include", "acyclic", "containment".
	Rule string `json:"rule"`

	// Expected and Actual describe the failure in human-readable terms.
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	// SpanID and SpanName identify the offending span when one exists.
	SpanID   string `json:"span_id,omitempty"`
	SpanName string `json:"span_name,omitempty"`
}

// String renders the violation for logs and CLI output.
func (v *Violation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s/%s] expected %s, got %s", v.Validator, v.Rule, v.Expected, v.Actual)
	if v.SpanName != "" {
		fmt.Fprintf(&b, " (span %s", v.SpanName)
		if v.SpanID != "" {
			fmt.Fprintf(&b, " id=%s", v.SpanID)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Result is the outcome of one validator.
type Result struct {
	Name       string      `json:"name"`
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations,omitempty"`
}

// Summary carries the trace-level counts included in every report.
type Summary struct {
	Spans  int `json:"spans"`
	Events int `json:"events"`
	Errors int `json:"errors"`
}

// Report is the merged outcome of a validation run.
type Report struct {
	Verdict Verdict  `json:"verdict"`
	Results []Result `json:"results"`

	// FirstFailure points at the earliest violation by spec-declared
	// validator order, then detection order. Nil on PASS.
	FirstFailure *Violation `json:"first_failure,omitempty"`

	Summary Summary `json:"summary"`
}

// Violations returns all violations across validators, in report order.
func (r *Report) Violations() []Violation {
	var all []Violation
	for _, res := range r.Results {
		all = append(all, res.Violations...)
	}
	return all
}
