package validate

import (
	"fmt"
	"sort"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkWindow verifies temporal containment: every inner span instance must
// lie inside its matched outer span's interval, boundaries inclusive.
//
// Matching policy for multiple same-named outer spans: the nearest enclosing
// interval (the containing instance with the shortest duration) wins, unless
// the spec pins an instance with outer_index. Two containing instances with
// identical durations are reported as ambiguous rather than guessed at.
func checkWindow(tr *trace.Trace, specs []expect.WindowSpec) []Violation {
	var violations []Violation
	for i := range specs {
		violations = append(violations, checkOneWindow(tr, &specs[i])...)
	}
	return violations
}

func checkOneWindow(tr *trace.Trace, w *expect.WindowSpec) []Violation {
	outers := sortedByStart(tr, tr.ByName(w.Outer))
	if len(outers) == 0 {
		return []Violation{{
			Validator: ValidatorWindow,
			Rule:      "outer_exists",
			Expected:  fmt.Sprintf("outer span %q", w.Outer),
			Actual:    "not found in trace",
		}}
	}

	if w.OuterIndex != nil {
		if *w.OuterIndex >= len(outers) {
			return []Violation{{
				Validator: ValidatorWindow,
				Rule:      "outer_index",
				Expected:  fmt.Sprintf("outer %q instance %d", w.Outer, *w.OuterIndex),
				Actual:    fmt.Sprintf("only %d instance(s)", len(outers)),
			}}
		}
		outers = outers[*w.OuterIndex : *w.OuterIndex+1]
	}

	var violations []Violation
	for _, innerName := range w.Inner {
		inners := tr.ByName(innerName)
		if len(inners) == 0 {
			violations = append(violations, Violation{
				Validator: ValidatorWindow,
				Rule:      "inner_exists",
				Expected:  fmt.Sprintf("inner span %q inside %q", innerName, w.Outer),
				Actual:    "not found in trace",
			})
			continue
		}
		for _, idx := range inners {
			if v := checkContainment(tr, w.Outer, outers, idx); v != nil {
				violations = append(violations, *v)
			}
		}
	}
	return violations
}

// checkContainment matches one inner span against the outer candidates and
// returns a violation when containment fails or the match is ambiguous.
func checkContainment(tr *trace.Trace, outerName string, outers []int, innerIdx int) *Violation {
	inner := tr.Span(innerIdx)

	// Collect containing candidates; track the nearest (shortest) one.
	var containing []int
	for _, o := range outers {
		if tr.Span(o).Contains(inner) {
			containing = append(containing, o)
		}
	}

	switch len(containing) {
	case 1:
		return nil
	case 0:
		// Report against the candidate with the most precise reason. With a
		// single outer instance the exact boundary that was exceeded is named.
		outer := tr.Span(outers[0])
		actual := "no enclosing instance"
		if len(outers) == 1 {
			switch {
			case inner.StartTime.Before(outer.StartTime):
				actual = fmt.Sprintf("inner starts %s before outer start", outer.StartTime.Sub(inner.StartTime))
			case inner.EndTime.After(outer.EndTime):
				actual = fmt.Sprintf("inner ends %s after outer end", inner.EndTime.Sub(outer.EndTime))
			}
		}
		return &Violation{
			Validator: ValidatorWindow,
			Rule:      "containment",
			Expected:  fmt.Sprintf("%q contained in %q", inner.Name, outerName),
			Actual:    actual,
			SpanID:    inner.ID,
			SpanName:  inner.Name,
		}
	default:
		// Nearest-enclosing-interval: the shortest containing instance wins.
		// An exact duration tie is ambiguous and reported, not guessed at.
		sort.Slice(containing, func(a, b int) bool {
			return tr.Span(containing[a]).Duration() < tr.Span(containing[b]).Duration()
		})
		if tr.Span(containing[0]).Duration() == tr.Span(containing[1]).Duration() {
			return &Violation{
				Validator: ValidatorWindow,
				Rule:      "ambiguous_outer",
				Expected:  fmt.Sprintf("one nearest enclosing %q instance for %q", outerName, inner.Name),
				Actual:    fmt.Sprintf("%d equally-sized enclosing instances", len(containing)),
				SpanID:    inner.ID,
				SpanName:  inner.Name,
			}
		}
		return nil
	}
}

// sortedByStart orders arena indexes by span start time, then by ID for a
// stable order under identical timestamps.
func sortedByStart(tr *trace.Trace, idxs []int) []int {
	sorted := append([]int{}, idxs...)
	sort.Slice(sorted, func(a, b int) bool {
		sa, sb := tr.Span(sorted[a]), tr.Span(sorted[b])
		if !sa.StartTime.Equal(sb.StartTime) {
			return sa.StartTime.Before(sb.StartTime)
		}
		return sa.ID < sb.ID
	})
	return sorted
}
