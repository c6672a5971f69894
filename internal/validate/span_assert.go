package validate

import (
	"fmt"
	"sort"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkSpans verifies per-name span assertions: existence (optionally scoped
// by parent), attribute constraints, required event membership, and duration
// bounds.
//
// When several same-named spans exist, the assertion holds if at least one
// instance satisfies every constraint; the violation reports the nearest
// miss (the instance with the fewest failed constraints) so the message
// points at something concrete.
func checkSpans(tr *trace.Trace, specs []expect.SpanAssertion) []Violation {
	var violations []Violation
	for i := range specs {
		violations = append(violations, checkOneSpanAssertion(tr, &specs[i])...)
	}
	return violations
}

func checkOneSpanAssertion(tr *trace.Trace, sa *expect.SpanAssertion) []Violation {
	candidates := tr.ByName(sa.Name)
	if sa.Parent != "" {
		var scoped []int
		for _, idx := range candidates {
			p := tr.Parent(idx)
			if p != trace.NoParent && tr.Span(p).Name == sa.Parent {
				scoped = append(scoped, idx)
			}
		}
		if len(scoped) == 0 {
			actual := "span not found in trace"
			if len(candidates) > 0 {
				actual = fmt.Sprintf("%d instance(s) exist but none under %q", len(candidates), sa.Parent)
			}
			return []Violation{{
				Validator: ValidatorSpan,
				Rule:      "exists",
				Expected:  fmt.Sprintf("span %q with parent %q", sa.Name, sa.Parent),
				Actual:    actual,
			}}
		}
		candidates = scoped
	}
	if len(candidates) == 0 {
		return []Violation{{
			Validator: ValidatorSpan,
			Rule:      "exists",
			Expected:  fmt.Sprintf("span %q", sa.Name),
			Actual:    "not found in trace",
		}}
	}

	// Pick the instance closest to satisfying the assertion.
	best := instanceViolations(tr.Span(candidates[0]), sa)
	for _, idx := range candidates[1:] {
		if len(best) == 0 {
			break
		}
		if vs := instanceViolations(tr.Span(idx), sa); len(vs) < len(best) {
			best = vs
		}
	}
	return best
}

// instanceViolations checks one span instance against the assertion's
// attribute, event, and duration constraints.
func instanceViolations(s *trace.Span, sa *expect.SpanAssertion) []Violation {
	var violations []Violation

	keys := make([]string, 0, len(sa.Attributes))
	for k := range sa.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := sa.Attributes[key]
		got, ok := s.Attributes[key]
		switch {
		case !ok:
			violations = append(violations, Violation{
				Validator: ValidatorSpan,
				Rule:      "attribute",
				Expected:  fmt.Sprintf("%s=%q", key, want),
				Actual:    "attribute missing",
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		case got != want:
			violations = append(violations, Violation{
				Validator: ValidatorSpan,
				Rule:      "attribute",
				Expected:  fmt.Sprintf("%s=%q", key, want),
				Actual:    fmt.Sprintf("%s=%q", key, got),
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		}
	}

	for _, key := range sa.HasAttributes {
		if _, ok := s.Attributes[key]; !ok {
			violations = append(violations, Violation{
				Validator: ValidatorSpan,
				Rule:      "attribute_present",
				Expected:  fmt.Sprintf("attribute %q present", key),
				Actual:    "attribute missing",
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		}
	}

	for _, name := range sa.Events {
		if !hasEvent(s, name) {
			violations = append(violations, Violation{
				Validator: ValidatorSpan,
				Rule:      "event",
				Expected:  fmt.Sprintf("event %q", name),
				Actual:    "event not recorded",
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		}
	}

	dur := s.Duration()
	if sa.MinDuration > 0 && dur < sa.MinDuration.Std() {
		violations = append(violations, Violation{
			Validator: ValidatorSpan,
			Rule:      "duration",
			Expected:  fmt.Sprintf("duration >= %s", sa.MinDuration.Std()),
			Actual:    dur.String(),
			SpanID:    s.ID,
			SpanName:  s.Name,
		})
	}
	if sa.MaxDuration > 0 && dur > sa.MaxDuration.Std() {
		violations = append(violations, Violation{
			Validator: ValidatorSpan,
			Rule:      "duration",
			Expected:  fmt.Sprintf("duration <= %s", sa.MaxDuration.Std()),
			Actual:    dur.String(),
			SpanID:    s.ID,
			SpanName:  s.Name,
		})
	}

	return violations
}

func hasEvent(s *trace.Span, name string) bool {
	for i := range s.Events {
		if s.Events[i].Name == name {
			return true
		}
	}
	return false
}
