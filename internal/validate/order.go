package validate

import (
	"fmt"
	"sort"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkOrder verifies temporal precedence pairs: every instance of First
// must complete no later than the paired instance of Then begins.
//
// Pairing policy when cardinalities differ (earliest-unpaired-first): First
// instances are sorted by end time, Then instances by start time, and the
// i-th of each are paired. Every instance left without a partner is a
// violation in its own right.
func checkOrder(tr *trace.Trace, specs []expect.OrderSpec) []Violation {
	var violations []Violation
	for i := range specs {
		violations = append(violations, checkOnePair(tr, &specs[i])...)
	}
	return violations
}

func checkOnePair(tr *trace.Trace, o *expect.OrderSpec) []Violation {
	firsts := tr.ByName(o.First)
	thens := tr.ByName(o.Then)
	if len(firsts) == 0 && len(thens) == 0 {
		// Neither side present: nothing to order. Use a count or span
		// assertion to require existence.
		return nil
	}

	firsts = append([]int{}, firsts...)
	sort.Slice(firsts, func(a, b int) bool {
		return tr.Span(firsts[a]).EndTime.Before(tr.Span(firsts[b]).EndTime)
	})
	thens = append([]int{}, thens...)
	sort.Slice(thens, func(a, b int) bool {
		return tr.Span(thens[a]).StartTime.Before(tr.Span(thens[b]).StartTime)
	})

	var violations []Violation
	paired := len(firsts)
	if len(thens) < paired {
		paired = len(thens)
	}

	for i := 0; i < paired; i++ {
		a, b := tr.Span(firsts[i]), tr.Span(thens[i])
		if a.EndTime.After(b.StartTime) {
			violations = append(violations, Violation{
				Validator: ValidatorOrder,
				Rule:      "precedes",
				Expected:  fmt.Sprintf("%q ends no later than %q starts", o.First, o.Then),
				Actual:    fmt.Sprintf("ends %s after", a.EndTime.Sub(b.StartTime)),
				SpanID:    a.ID,
				SpanName:  a.Name,
			})
		}
	}

	for _, idx := range firsts[paired:] {
		s := tr.Span(idx)
		violations = append(violations, Violation{
			Validator: ValidatorOrder,
			Rule:      "unpaired",
			Expected:  fmt.Sprintf("a %q instance after each %q", o.Then, o.First),
			Actual:    fmt.Sprintf("%q instance has no %q partner", o.First, o.Then),
			SpanID:    s.ID,
			SpanName:  s.Name,
		})
	}
	for _, idx := range thens[paired:] {
		s := tr.Span(idx)
		violations = append(violations, Violation{
			Validator: ValidatorOrder,
			Rule:      "unpaired",
			Expected:  fmt.Sprintf("a %q instance before each %q", o.First, o.Then),
			Actual:    fmt.Sprintf("%q instance has no %q partner", o.Then, o.First),
			SpanID:    s.ID,
			SpanName:  s.Name,
		})
	}

	return violations
}
