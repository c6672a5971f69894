package canon

import (
	"context"
	"fmt"
	"sort"

	"github.com/tracecheck/tracecheck/internal/trace"
)

// RunFunc executes one full scenario end-to-end and returns its finalized
// trace. The executor owns state reset between iterations (fresh containers,
// fresh processes); the determinism check only sequences and compares.
type RunFunc func(ctx context.Context, iteration int) (*trace.Trace, error)

// FieldDiff names one normalized field whose value differs between two
// iterations of the same scenario.
type FieldDiff struct {
	Path     string `json:"path"`     // dotted path into the normalized tree
	Baseline string `json:"baseline"` // value in iteration 0
	Actual   string `json:"actual"`   // value in the diverging iteration
}

// DeterminismResult is the outcome of an N-iteration consistency check.
type DeterminismResult struct {
	Pass       bool     `json:"pass"`
	Iterations int      `json:"iterations"`
	Digests    []string `json:"digests"`

	// DivergedAt is the first iteration whose digest differs from
	// iteration 0. Zero when Pass.
	DivergedAt int `json:"diverged_at,omitempty"`

	// Diffs lists the normalized fields that first diverged.
	Diffs []FieldDiff `json:"diffs,omitempty"`
}

// CheckDeterminism runs the scenario exactly iterations times sequentially
// and asserts all digests are pairwise equal.
//
// Iterations never run concurrently: overlap would make isolation violations
// indistinguishable from nondeterminism. On the first digest mismatch the
// result reports which normalized fields diverged from iteration 0; later
// iterations still run so the digest list is complete.
func CheckDeterminism(ctx context.Context, run RunFunc, iterations int, matchers Matchers) (*DeterminismResult, error) {
	if iterations < 2 {
		return nil, fmt.Errorf("determinism check requires at least 2 iterations, got %d", iterations)
	}

	result := &DeterminismResult{Pass: true, Iterations: iterations}
	var baseline *NormalizedTrace

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr, err := run(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		normalized := Normalize(tr, matchers)
		digest, err := Digest(normalized)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		result.Digests = append(result.Digests, digest)

		if i == 0 {
			baseline = normalized
			continue
		}
		if result.Pass && digest != result.Digests[0] {
			result.Pass = false
			result.DivergedAt = i
			result.Diffs = CompareNormalized(baseline, normalized)
		}
	}

	return result, nil
}

// CompareNormalized walks two normalized traces and returns every field
// path whose value differs, in path order.
func CompareNormalized(baseline, other *NormalizedTrace) []FieldDiff {
	var diffs []FieldDiff
	diffValues("", baseline.value, other.value, &diffs)
	sort.Slice(diffs, func(a, b int) bool { return diffs[a].Path < diffs[b].Path })
	return diffs
}

func diffValues(path string, a, b any, diffs *[]FieldDiff) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			*diffs = append(*diffs, FieldDiff{Path: path, Baseline: renderValue(a), Actual: renderValue(b)})
			return
		}
		for _, k := range sortedKeysRFC8785(av) {
			child := joinPath(path, k)
			if vb, ok := bv[k]; ok {
				diffValues(child, av[k], vb, diffs)
			} else {
				*diffs = append(*diffs, FieldDiff{Path: child, Baseline: renderValue(av[k]), Actual: "(absent)"})
			}
		}
		for _, k := range sortedKeysRFC8785(bv) {
			if _, ok := av[k]; !ok {
				*diffs = append(*diffs, FieldDiff{Path: joinPath(path, k), Baseline: "(absent)", Actual: renderValue(bv[k])})
			}
		}
	case []any:
		bv, ok := b.([]any)
		if !ok {
			*diffs = append(*diffs, FieldDiff{Path: path, Baseline: renderValue(a), Actual: renderValue(b)})
			return
		}
		n := len(av)
		if len(bv) < n {
			n = len(bv)
		}
		for i := 0; i < n; i++ {
			diffValues(fmt.Sprintf("%s[%d]", path, i), av[i], bv[i], diffs)
		}
		for i := n; i < len(av); i++ {
			*diffs = append(*diffs, FieldDiff{Path: fmt.Sprintf("%s[%d]", path, i), Baseline: renderValue(av[i]), Actual: "(absent)"})
		}
		for i := n; i < len(bv); i++ {
			*diffs = append(*diffs, FieldDiff{Path: fmt.Sprintf("%s[%d]", path, i), Baseline: "(absent)", Actual: renderValue(bv[i])})
		}
	default:
		if a != b {
			*diffs = append(*diffs, FieldDiff{Path: path, Baseline: renderValue(a), Actual: renderValue(b)})
		}
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func renderValue(v any) string {
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
