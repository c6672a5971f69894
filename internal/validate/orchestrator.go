package validate

import (
	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// Run checks one trace against one expectation spec and merges the outcomes
// into a single report.
//
// Structural errors abort before any validator runs: a *expect.SchemaError
// for an invalid spec, a *trace.MalformedTraceError for a trace with orphans
// or duplicate IDs. Reasoning about constraints over an inconsistent
// structure is meaningless, so neither is ever folded into the report.
// Parent-link cycles do not abort: a cyclic trace is still a well-defined
// span set, and the graph validator reports the cycles as violations.
//
// Every requested validator runs; there is no short-circuit on the first
// failing validator, so one run surfaces every problem. The verdict is FAIL
// if any validator reported a violation and PASS only when all requested
// validators came back clean. A valid spec carries at least one section,
// so a PASS always means something actually ran.
//
// Run is a pure function of its inputs: identical (trace, spec) pairs
// produce identical reports.
func Run(tr *trace.Trace, spec *expect.Spec) (*Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := tr.Inconsistent(); err != nil {
		return nil, err
	}

	report := &Report{
		Verdict: VerdictPass,
		Summary: Summary{
			Spans:  tr.Len(),
			Events: tr.EventCount(),
			Errors: tr.ErrorCount(),
		},
	}

	// Validators run in spec-declared precedence order; FirstFailure falls
	// out of that order plus per-validator detection order.
	if len(spec.Spans) > 0 {
		report.add(ValidatorSpan, checkSpans(tr, spec.Spans))
	}
	if spec.Graph != nil {
		report.add(ValidatorGraph, checkGraph(tr, spec.Graph))
	}
	if spec.Counts != nil {
		report.add(ValidatorCount, checkCount(tr, spec.Counts))
	}
	if len(spec.Windows) > 0 {
		report.add(ValidatorWindow, checkWindow(tr, spec.Windows))
	}
	if len(spec.Order) > 0 {
		report.add(ValidatorOrder, checkOrder(tr, spec.Order))
	}
	if spec.Status != nil {
		report.add(ValidatorStatus, checkStatus(tr, spec.Status))
	}
	if spec.Hermeticity != nil {
		report.add(ValidatorHermeticity, checkHermeticity(tr, spec.Hermeticity))
	}

	return report, nil
}

// add records one validator's outcome, updating the verdict and first
// failure as needed.
func (r *Report) add(name string, violations []Violation) {
	result := Result{
		Name:       name,
		Pass:       len(violations) == 0,
		Violations: violations,
	}
	r.Results = append(r.Results, result)
	if len(violations) > 0 {
		r.Verdict = VerdictFail
		if r.FirstFailure == nil {
			first := violations[0]
			r.FirstFailure = &first
		}
	}
}
