package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tracecheck/tracecheck/internal/trace"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// span builds one span with a millisecond-offset interval.
func span(id, parent, name string, startMs, endMs int) trace.Span {
	return trace.Span{
		ID:        id,
		ParentID:  parent,
		Name:      name,
		StartTime: base.Add(time.Duration(startMs) * time.Millisecond),
		EndTime:   base.Add(time.Duration(endMs) * time.Millisecond),
		Status:    trace.StatusOK,
	}
}

// mustBuild assembles a trace and fails the test on any structural anomaly.
func mustBuild(t *testing.T, spans ...trace.Span) *trace.Trace {
	t.Helper()
	tr, err := trace.Build(spans)
	require.NoError(t, err)
	return tr
}

func intp(n int) *int { return &n }

// rules extracts the rule names from a violation list, in order.
func rules(violations []Violation) []string {
	out := make([]string, len(violations))
	for i := range violations {
		out[i] = violations[i].Rule
	}
	return out
}
