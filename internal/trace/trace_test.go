package trace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func span(id, parent, name string, startMs, endMs int) Span {
	return Span{
		ID:        id,
		ParentID:  parent,
		Name:      name,
		StartTime: t0.Add(time.Duration(startMs) * time.Millisecond),
		EndTime:   t0.Add(time.Duration(endMs) * time.Millisecond),
		Status:    StatusOK,
	}
}

func TestBuild_ResolvesForest(t *testing.T) {
	tr, err := Build([]Span{
		span("a", "", "run", 0, 100),
		span("b", "a", "step", 10, 50),
		span("c", "a", "step", 60, 90),
		span("d", "b", "fetch", 20, 30),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, tr.Len())
	assert.Equal(t, []int{0}, tr.Roots())
	assert.Len(t, tr.ByName("step"), 2)

	idx, ok := tr.ByID("d")
	require.True(t, ok)
	assert.Equal(t, "fetch", tr.Span(idx).Name)

	parent := tr.Parent(idx)
	require.NotEqual(t, NoParent, parent)
	assert.Equal(t, "step", tr.Span(parent).Name)

	assert.Equal(t, 1, tr.Depth(0))
	assert.Equal(t, 3, tr.Depth(idx))
}

func TestBuild_MultipleRoots(t *testing.T) {
	tr, err := Build([]Span{
		span("a", "", "first", 0, 10),
		span("b", "", "second", 20, 30),
	})
	require.NoError(t, err)
	assert.Len(t, tr.Roots(), 2)
}

func TestBuild_EmptyTrace(t *testing.T) {
	tr, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Roots())
}

func TestBuild_OrphanFlaggedNotDropped(t *testing.T) {
	tr, err := Build([]Span{
		span("a", "", "run", 0, 100),
		span("b", "ghost", "leak", 10, 20),
	})
	require.Error(t, err)

	var malformed *MalformedTraceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"b (leak)"}, malformed.Orphans)

	// The orphan stays in the arena and is treated as a root.
	require.NotNil(t, tr)
	assert.Equal(t, 2, tr.Len())
	assert.Len(t, tr.Roots(), 2)
	assert.Equal(t, []int{1}, tr.Orphans())
}

func TestBuild_DuplicateIDKeptInArena(t *testing.T) {
	tr, err := Build([]Span{
		span("a", "", "run", 0, 100),
		span("a", "", "impostor", 0, 100),
		span("c", "a", "child", 10, 20),
	})
	require.Error(t, err)

	var malformed *MalformedTraceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"a"}, malformed.Duplicates)

	// Both colliding spans stay in the arena; ID lookups and parent links
	// resolve to the first occurrence.
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, "run", tr.Span(0).Name)
	assert.Equal(t, "impostor", tr.Span(1).Name)
	idx, ok := tr.ByID("a")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, tr.Parent(2))
}

func TestBuild_CycleDetected(t *testing.T) {
	// x's parent is a descendant of x: a back-edge through the chain.
	tr, err := Build([]Span{
		span("x", "z", "outer", 0, 100),
		span("y", "x", "middle", 10, 90),
		span("z", "y", "inner", 20, 80),
	})
	require.Error(t, err)

	var malformed *MalformedTraceError
	require.True(t, errors.As(err, &malformed))
	require.Len(t, malformed.Cycles, 1)
	assert.Contains(t, malformed.Cycles[0], "outer[x]")

	require.Len(t, tr.Cycles(), 1)
	// The cycle path is closed: first and last index are the same span.
	cycle := tr.Cycles()[0]
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.Len(t, cycle, 4)
}

func TestBuild_SelfParentIsCycle(t *testing.T) {
	tr, err := Build([]Span{span("a", "a", "loop", 0, 10)})
	require.Error(t, err)
	require.Len(t, tr.Cycles(), 1)
	assert.Empty(t, tr.Orphans())
}

func TestTrace_Inconsistent(t *testing.T) {
	orphaned, err := Build([]Span{
		span("a", "", "run", 0, 100),
		span("b", "ghost", "leak", 10, 20),
	})
	require.Error(t, err)
	assert.Error(t, orphaned.Inconsistent())

	// A cycle flags the trace as malformed but not inconsistent: the span
	// set itself is still well defined.
	cyclic, err := Build([]Span{
		span("x", "y", "ping", 0, 100),
		span("y", "x", "pong", 0, 100),
	})
	require.Error(t, err)
	assert.Error(t, cyclic.Malformed())
	assert.NoError(t, cyclic.Inconsistent())
}

func TestTrace_Counts(t *testing.T) {
	s1 := span("a", "", "run", 0, 100)
	s1.Events = []Event{{Name: "started", Timestamp: t0}, {Name: "finished", Timestamp: t0}}
	s2 := span("b", "a", "step", 10, 50)
	s2.Status = StatusError
	s2.Events = []Event{{Name: "boom", Timestamp: t0}}

	tr, err := Build([]Span{s1, s2})
	require.NoError(t, err)

	assert.Equal(t, 3, tr.EventCount())
	assert.Equal(t, 1, tr.ErrorCount())
}

func TestSpan_Contains(t *testing.T) {
	outer := span("o", "", "outer", 0, 100)
	inner := span("i", "o", "inner", 10, 90)
	exact := span("e", "o", "exact", 0, 100)
	late := span("l", "o", "late", 10, 150)

	assert.True(t, outer.Contains(&inner))
	assert.True(t, outer.Contains(&exact), "boundaries are inclusive")
	assert.False(t, outer.Contains(&late))
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusOK.Valid())
	assert.True(t, StatusError.Valid())
	assert.True(t, StatusUnset.Valid())
	assert.False(t, Status("BROKEN").Valid())
}
