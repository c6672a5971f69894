package validate

import (
	"fmt"
	"path"
	"sort"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkStatus verifies span statuses: all spans OK under the global rule,
// except where a name-pattern override expects a different status.
//
// Overrides evaluate in lexicographic pattern order and the first match wins,
// so overlapping patterns resolve the same way on every run.
func checkStatus(tr *trace.Trace, spec *expect.StatusSpec) []Violation {
	patterns := make([]string, 0, len(spec.Overrides))
	for p := range spec.Overrides {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	var violations []Violation
	for i := 0; i < tr.Len(); i++ {
		s := tr.Span(i)

		want, rule := trace.StatusOK, "all_ok"
		overridden := false
		for _, pattern := range patterns {
			if matched, _ := path.Match(pattern, s.Name); matched {
				want = trace.Status(spec.Overrides[pattern])
				rule = "override"
				overridden = true
				break
			}
		}
		if !spec.AllOK && !overridden {
			continue
		}

		if s.Status != want {
			actual := string(s.Status)
			if s.StatusMessage != "" {
				actual = fmt.Sprintf("%s (%s)", s.Status, s.StatusMessage)
			}
			violations = append(violations, Violation{
				Validator: ValidatorStatus,
				Rule:      rule,
				Expected:  fmt.Sprintf("status %s", want),
				Actual:    actual,
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		}
	}
	return violations
}
