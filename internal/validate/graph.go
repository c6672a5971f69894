package validate

import (
	"fmt"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// checkGraph verifies the forest topology: required edges, acyclicity, and
// maximum depth.
//
// An empty trace trivially satisfies "acyclic" but fails every must_include
// edge. That asymmetry is what defeats a no-op execution that emits no
// telemetry at all: requiring even a single edge forces real spans to exist.
func checkGraph(tr *trace.Trace, spec *expect.GraphSpec) []Violation {
	var violations []Violation

	for _, edge := range spec.MustInclude {
		if !hasEdge(tr, edge.Parent, edge.Child) {
			violations = append(violations, Violation{
				Validator: ValidatorGraph,
				Rule:      "must_include",
				Expected:  fmt.Sprintf("edge %s -> %s", edge.Parent, edge.Child),
				Actual:    "edge not found in trace",
			})
		}
	}

	if spec.Acyclic {
		for _, path := range tr.CyclePaths() {
			violations = append(violations, Violation{
				Validator: ValidatorGraph,
				Rule:      "acyclic",
				Expected:  "no parent-link cycles",
				Actual:    "cycle: " + path,
			})
		}
	}

	if spec.MaxDepth > 0 {
		deepest, maxDepth := -1, 0
		for i := 0; i < tr.Len(); i++ {
			if d := tr.Depth(i); d > maxDepth {
				deepest, maxDepth = i, d
			}
		}
		if maxDepth > spec.MaxDepth {
			s := tr.Span(deepest)
			violations = append(violations, Violation{
				Validator: ValidatorGraph,
				Rule:      "max_depth",
				Expected:  fmt.Sprintf("depth <= %d", spec.MaxDepth),
				Actual:    fmt.Sprintf("depth %d", maxDepth),
				SpanID:    s.ID,
				SpanName:  s.Name,
			})
		}
	}

	return violations
}

// hasEdge reports whether any span named child has a parent named parent.
func hasEdge(tr *trace.Trace, parent, child string) bool {
	for _, idx := range tr.ByName(child) {
		p := tr.Parent(idx)
		if p != trace.NoParent && tr.Span(p).Name == parent {
			return true
		}
	}
	return false
}
