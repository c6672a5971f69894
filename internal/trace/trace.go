package trace

import (
	"fmt"
	"strings"
)

// NoParent marks a span with no resolvable parent in the arena.
const NoParent = -1

// Trace is the finalized forest of spans from one execution.
//
// Spans live in an arena indexed by position; parent links are stored as
// indexes into the arena rather than live references, which makes cycle
// detection a visited-index-set walk and rules out ownership cycles.
//
// A Trace is immutable after Build. Validators and the normalizer only read
// it, so all checks can run in any order or concurrently.
type Trace struct {
	spans   []Span
	parents []int // arena index of the parent, or NoParent
	roots   []int
	byName  map[string][]int
	byID    map[string]int

	orphans    []int    // spans whose ParentID resolved to nothing
	duplicates []string // span IDs seen more than once
	cycles     [][]int  // parent-link cycles, each a closed index path
}

// MalformedTraceError reports structural anomalies found while building a
// trace: orphaned spans, duplicate span IDs, or parent-link cycles.
//
// Build still returns the flagged Trace alongside this error so callers that
// want to inspect the damage (for example the graph validator) can. The
// validation orchestrator aborts on orphans and duplicates but lets cycles
// through to the graph validator; see Inconsistent.
type MalformedTraceError struct {
	Orphans    []string // "id (name)" for each unresolved parent link
	Duplicates []string // duplicated span IDs
	Cycles     []string // rendered cycle paths, e.g. "a -> b -> a"
}

// Error implements the error interface.
func (e *MalformedTraceError) Error() string {
	var parts []string
	if len(e.Orphans) > 0 {
		parts = append(parts, fmt.Sprintf("%d orphaned span(s): %s", len(e.Orphans), strings.Join(e.Orphans, ", ")))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate span id(s): %s", strings.Join(e.Duplicates, ", ")))
	}
	if len(e.Cycles) > 0 {
		parts = append(parts, fmt.Sprintf("parent-link cycle(s): %s", strings.Join(e.Cycles, "; ")))
	}
	return "malformed trace: " + strings.Join(parts, "; ")
}

// Build assembles a Trace from an unordered collection of span records.
//
// Parent links are resolved by ID, roots are computed, and anomalies are
// flagged rather than discarded:
//   - a span whose ParentID does not resolve is kept as an orphan root;
//   - a duplicate span ID is recorded and both spans stay in the arena,
//     with parent links resolving to the first occurrence;
//   - a parent-link cycle is recorded with its exact index path.
//
// When any anomaly exists, Build returns the Trace together with a
// *MalformedTraceError describing all of them.
func Build(spans []Span) (*Trace, error) {
	tr := &Trace{
		spans:   make([]Span, 0, len(spans)),
		parents: make([]int, 0, len(spans)),
		byName:  make(map[string][]int),
		byID:    make(map[string]int, len(spans)),
	}

	// First pass: copy every span into the arena. A duplicated ID is recorded
	// but its span is kept; only the first occurrence is registered in byID,
	// so parent links resolve to it.
	dupSeen := make(map[string]bool)
	for _, s := range spans {
		idx := len(tr.spans)
		tr.spans = append(tr.spans, s)
		tr.byName[s.Name] = append(tr.byName[s.Name], idx)
		if s.ID == "" {
			continue
		}
		if _, exists := tr.byID[s.ID]; exists {
			if !dupSeen[s.ID] {
				dupSeen[s.ID] = true
				tr.duplicates = append(tr.duplicates, s.ID)
			}
			continue
		}
		tr.byID[s.ID] = idx
	}

	// Second pass: resolve parent links against the arena.
	tr.parents = make([]int, len(tr.spans))
	for i := range tr.spans {
		pid := tr.spans[i].ParentID
		if pid == "" {
			tr.parents[i] = NoParent
			tr.roots = append(tr.roots, i)
			continue
		}
		parent, ok := tr.byID[pid]
		if !ok {
			// Unresolvable parent: orphan, treated as a root so the span
			// still participates in traversal.
			tr.parents[i] = NoParent
			tr.orphans = append(tr.orphans, i)
			tr.roots = append(tr.roots, i)
			continue
		}
		// A self-referential parent stays linked and surfaces as a cycle.
		tr.parents[i] = parent
	}

	tr.cycles = findParentCycles(tr.parents)

	if err := tr.malformation(); err != nil {
		return tr, err
	}
	return tr, nil
}

// findParentCycles walks every ancestor chain with a per-path visited set and
// returns each distinct cycle as a closed index path.
func findParentCycles(parents []int) [][]int {
	const (
		unvisited = 0
		inPath    = 1
		done      = 2
	)
	state := make([]int, len(parents))
	var cycles [][]int

	for start := range parents {
		if state[start] != unvisited {
			continue
		}
		var path []int
		node := start
		for node != NoParent && state[node] == unvisited {
			state[node] = inPath
			path = append(path, node)
			node = parents[node]
		}
		if node != NoParent && state[node] == inPath {
			// Back-edge into the current path: slice out the cycle and close it.
			for i, p := range path {
				if p == node {
					cycle := append(append([]int{}, path[i:]...), node)
					cycles = append(cycles, cycle)
					break
				}
			}
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return cycles
}

// malformation converts recorded anomalies into a *MalformedTraceError,
// or nil when the trace is clean.
func (tr *Trace) malformation() error {
	if len(tr.orphans) == 0 && len(tr.duplicates) == 0 && len(tr.cycles) == 0 {
		return nil
	}
	err := &MalformedTraceError{Duplicates: append([]string{}, tr.duplicates...)}
	for _, idx := range tr.orphans {
		s := &tr.spans[idx]
		err.Orphans = append(err.Orphans, fmt.Sprintf("%s (%s)", s.ID, s.Name))
	}
	for _, cycle := range tr.cycles {
		err.Cycles = append(err.Cycles, tr.renderPath(cycle))
	}
	return err
}

// renderPath formats an index path as "name[id] -> name[id] -> ...".
func (tr *Trace) renderPath(path []int) string {
	parts := make([]string, len(path))
	for i, idx := range path {
		s := &tr.spans[idx]
		parts[i] = fmt.Sprintf("%s[%s]", s.Name, s.ID)
	}
	return strings.Join(parts, " -> ")
}

// Malformed returns the *MalformedTraceError describing this trace's
// structural anomalies, or nil when the trace is clean. This is the same
// error Build returns alongside a flagged trace.
func (tr *Trace) Malformed() error {
	return tr.malformation()
}

// Inconsistent returns a *MalformedTraceError covering only the anomalies
// that make parent resolution ambiguous or incomplete: orphaned spans and
// duplicate IDs.
// Parent-link cycles are excluded: a cyclic trace still has a well-defined
// span set, and judging cycles is the graph validator's job.
func (tr *Trace) Inconsistent() error {
	if len(tr.orphans) == 0 && len(tr.duplicates) == 0 {
		return nil
	}
	err := &MalformedTraceError{Duplicates: append([]string{}, tr.duplicates...)}
	for _, idx := range tr.orphans {
		s := &tr.spans[idx]
		err.Orphans = append(err.Orphans, fmt.Sprintf("%s (%s)", s.ID, s.Name))
	}
	return err
}

// Len returns the number of spans in the arena.
func (tr *Trace) Len() int { return len(tr.spans) }

// Span returns the span at arena index i.
func (tr *Trace) Span(i int) *Span { return &tr.spans[i] }

// Parent returns the arena index of span i's parent, or NoParent.
func (tr *Trace) Parent(i int) int { return tr.parents[i] }

// Roots returns the arena indexes of all root spans.
// A trace may have zero, one, or many roots.
func (tr *Trace) Roots() []int { return tr.roots }

// ByName returns the arena indexes of all spans with the given name.
func (tr *Trace) ByName(name string) []int { return tr.byName[name] }

// ByID returns the arena index of the span with the given ID.
func (tr *Trace) ByID(id string) (int, bool) {
	idx, ok := tr.byID[id]
	return idx, ok
}

// Orphans returns the arena indexes of spans with unresolved parent links.
func (tr *Trace) Orphans() []int { return tr.orphans }

// Duplicates returns the span IDs that appeared more than once in the input.
func (tr *Trace) Duplicates() []string { return tr.duplicates }

// Cycles returns each parent-link cycle as a closed index path.
func (tr *Trace) Cycles() [][]int { return tr.cycles }

// CyclePaths returns the parent-link cycles rendered as readable paths.
func (tr *Trace) CyclePaths() []string {
	paths := make([]string, len(tr.cycles))
	for i, c := range tr.cycles {
		paths[i] = tr.renderPath(c)
	}
	return paths
}

// EventCount returns the total number of events across all spans.
func (tr *Trace) EventCount() int {
	n := 0
	for i := range tr.spans {
		n += len(tr.spans[i].Events)
	}
	return n
}

// ErrorCount returns the number of spans with ERROR status.
func (tr *Trace) ErrorCount() int {
	n := 0
	for i := range tr.spans {
		if tr.spans[i].Status == StatusError {
			n++
		}
	}
	return n
}

// Depth returns the chain length from span i up to its root, counting the
// span itself. Spans on a parent-link cycle report the walk length until the
// cycle closes.
func (tr *Trace) Depth(i int) int {
	depth := 0
	seen := make(map[int]bool)
	for node := i; node != NoParent && !seen[node]; node = tr.parents[node] {
		seen[node] = true
		depth++
	}
	return depth
}
