package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

func TestCheckGraph_MustInclude(t *testing.T) {
	tr := mustBuild(t,
		span("a", "", "run", 0, 100),
		span("b", "a", "step", 10, 50),
	)

	assert.Empty(t, checkGraph(tr, &expect.GraphSpec{
		MustInclude: []expect.Edge{{Parent: "run", Child: "step"}},
	}))

	violations := checkGraph(tr, &expect.GraphSpec{
		MustInclude: []expect.Edge{{Parent: "step", Child: "run"}},
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "must_include", violations[0].Rule)
	assert.Equal(t, "edge step -> run", violations[0].Expected)
}

func TestCheckGraph_EmptyTraceFailsMustInclude(t *testing.T) {
	tr := mustBuild(t)

	// An edge requirement forces real spans to exist: a run that emitted no
	// telemetry at all cannot pass it.
	violations := checkGraph(tr, &expect.GraphSpec{
		MustInclude: []expect.Edge{{Parent: "run", Child: "step"}},
		Acyclic:     true,
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "must_include", violations[0].Rule)
}

func TestCheckGraph_AcyclicReportsCycles(t *testing.T) {
	// Build directly: Build flags the cycle, and the graph validator turns
	// the flagged paths into violations.
	tr, err := trace.Build([]trace.Span{
		span("x", "y", "ping", 0, 100),
		span("y", "x", "pong", 0, 100),
	})
	require.Error(t, err)

	violations := checkGraph(tr, &expect.GraphSpec{Acyclic: true})
	require.Len(t, violations, 1)
	assert.Equal(t, "acyclic", violations[0].Rule)
	assert.Contains(t, violations[0].Actual, "ping[x]")
	assert.Contains(t, violations[0].Actual, "pong[y]")
}

func TestCheckGraph_MaxDepth(t *testing.T) {
	tr := mustBuild(t,
		span("a", "", "l1", 0, 100),
		span("b", "a", "l2", 10, 90),
		span("c", "b", "l3", 20, 80),
	)

	assert.Empty(t, checkGraph(tr, &expect.GraphSpec{MaxDepth: 3}))

	violations := checkGraph(tr, &expect.GraphSpec{MaxDepth: 2})
	require.Len(t, violations, 1, "one violation for the deepest chain, not one per span")
	assert.Equal(t, "max_depth", violations[0].Rule)
	assert.Equal(t, "depth 3", violations[0].Actual)
	assert.Equal(t, "l3", violations[0].SpanName)
}
