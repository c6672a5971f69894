package validate

import (
	"fmt"
	"path"
	"sort"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkCount evaluates numeric range constraints against the total span
// count, total event count, and per-name-pattern span counts.
func checkCount(tr *trace.Trace, spec *expect.CountSpec) []Violation {
	var violations []Violation

	if b := spec.SpansTotal; b != nil && !b.Holds(tr.Len()) {
		violations = append(violations, Violation{
			Validator: ValidatorCount,
			Rule:      "spans_total",
			Expected:  b.String(),
			Actual:    fmt.Sprintf("%d", tr.Len()),
		})
	}

	if b := spec.EventsTotal; b != nil && !b.Holds(tr.EventCount()) {
		violations = append(violations, Violation{
			Validator: ValidatorCount,
			Rule:      "events_total",
			Expected:  b.String(),
			Actual:    fmt.Sprintf("%d", tr.EventCount()),
		})
	}

	// Patterns evaluate in sorted order so identical inputs produce
	// identical reports.
	patterns := make([]string, 0, len(spec.PerName))
	for p := range spec.PerName {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	for _, pattern := range patterns {
		bound := spec.PerName[pattern]
		count := countMatching(tr, pattern)
		if !bound.Holds(count) {
			violations = append(violations, Violation{
				Validator: ValidatorCount,
				Rule:      "per_name",
				Expected:  fmt.Sprintf("count(%s) %s", pattern, bound.String()),
				Actual:    fmt.Sprintf("%d", count),
			})
		}
	}

	return violations
}

// countMatching counts spans whose name matches the glob pattern.
func countMatching(tr *trace.Trace, pattern string) int {
	n := 0
	for i := 0; i < tr.Len(); i++ {
		if matched, _ := path.Match(pattern, tr.Span(i).Name); matched {
			n++
		}
	}
	return n
}
