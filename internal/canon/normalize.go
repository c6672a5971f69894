package canon

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tracecheck/tracecheck/internal/trace"
)

// Sentinel values substituted for volatile fields. Fixed strings, never
// derived from the stripped value, so two runs produce identical bytes.
const (
	SentinelTimestamp = "<ts>"
	SentinelID        = "<id>"
	SentinelUUID      = "<uuid>"
	SentinelVolatile  = "<volatile>"
)

// hexIDPattern matches 8/16/32-character lowercase hex strings, the shapes
// span, trace, and container identifiers take on the wire.
var hexIDPattern = regexp.MustCompile(`^([0-9a-f]{8}|[0-9a-f]{16}|[0-9a-f]{32})$`)

// Matchers configures which fields the normalizer treats as volatile.
type Matchers struct {
	// VolatileKeys are glob patterns over attribute keys whose values are
	// always replaced, regardless of shape.
	VolatileKeys []string

	// UUIDValues replaces any attribute value that parses as a UUID.
	UUIDValues bool

	// HexIDValues replaces attribute values shaped like span/trace/container
	// identifiers (8, 16, or 32 lowercase hex characters).
	HexIDValues bool
}

// DefaultMatchers covers the volatile fields an OTEL SDK stamps onto every
// run: container and process identity, host identity, service instance, and
// identifier-shaped attribute values.
func DefaultMatchers() Matchers {
	return Matchers{
		VolatileKeys: []string{
			"container.id",
			"host.id",
			"host.name",
			"process.pid",
			"process.runtime.*",
			"service.instance.id",
			"span.id",
			"trace.id",
		},
		UUIDValues:  true,
		HexIDValues: true,
	}
}

func (m *Matchers) volatileKey(key string) bool {
	for _, pattern := range m.VolatileKeys {
		if matched, _ := path.Match(pattern, key); matched {
			return true
		}
	}
	return false
}

func (m *Matchers) replaceValue(key, val string) string {
	if m.volatileKey(key) {
		return SentinelVolatile
	}
	if m.UUIDValues {
		if _, err := uuid.Parse(val); err == nil {
			return SentinelUUID
		}
	}
	if m.HexIDValues && hexIDPattern.MatchString(val) {
		return SentinelID
	}
	return val
}

// NormalizedTrace is the hash-stable projection of a trace: volatile fields
// replaced with sentinels, span identifiers remapped to stable ordinals, and
// every collection in a deterministic order.
type NormalizedTrace struct {
	value map[string]any
}

// Value returns the canonical value tree (strings, ints, bools, arrays,
// string-keyed objects only).
func (n *NormalizedTrace) Value() map[string]any { return n.value }

// Canonical returns the RFC 8785 serialization of the normalized trace,
// the exact bytes digests are computed over.
func (n *NormalizedTrace) Canonical() ([]byte, error) {
	return MarshalCanonical(n.value)
}

// Normalize produces the canonical projection of a trace.
//
// Span identifiers are remapped to ordinals ("s000", "s001", ...) assigned
// in a structural sort order (each span keyed by its root-to-span name path
// plus its normalized content), so the projection is independent of input
// ids, timestamps, and arrival order. Parent links survive through the
// remapped ordinals. Event order within a span is preserved: arrival order
// is part of the execution's observable behavior.
//
// Two logically identical executions that differ only in volatile fields
// normalize to byte-identical canonical forms.
func Normalize(tr *trace.Trace, matchers Matchers) *NormalizedTrace {
	type entry struct {
		idx     int
		key     string
		content map[string]any
	}

	entries := make([]entry, tr.Len())
	for i := 0; i < tr.Len(); i++ {
		content := normalizeSpan(tr.Span(i), &matchers)
		key := namePath(tr, i) + "\x00" + contentKey(content)
		entries[i] = entry{idx: i, key: key, content: content}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].key < entries[b].key
	})

	ordinal := make(map[int]string, len(entries))
	for pos, e := range entries {
		ordinal[e.idx] = fmt.Sprintf("s%03d", pos)
	}

	rows := make([]any, len(entries))
	for pos, e := range entries {
		row := e.content
		row["id"] = ordinal[e.idx]
		if p := tr.Parent(e.idx); p != trace.NoParent {
			row["parent"] = ordinal[p]
		}
		rows[pos] = row
	}

	// Final ordering over the complete rows. Spans that tied on the
	// structural key are byte-identical up to their parent ordinals, so
	// sorting the finished rows makes the output independent of how the
	// tie was broken.
	sort.SliceStable(rows, func(a, b int) bool {
		return contentKey(rows[a].(map[string]any)) < contentKey(rows[b].(map[string]any))
	})

	return &NormalizedTrace{value: map[string]any{"spans": rows}}
}

// normalizeSpan projects one span into the canonical value model,
// substituting sentinels for volatile fields.
func normalizeSpan(s *trace.Span, m *Matchers) map[string]any {
	row := map[string]any{
		"name":   s.Name,
		"status": string(s.Status),
		"start":  SentinelTimestamp,
		"end":    SentinelTimestamp,
	}
	if attrs := normalizeAttrs(s.Attributes, m); len(attrs) > 0 {
		row["attributes"] = attrs
	}
	if res := normalizeAttrs(s.Resource, m); len(res) > 0 {
		row["resource"] = res
	}
	if len(s.Events) > 0 {
		events := make([]any, len(s.Events))
		for i := range s.Events {
			ev := map[string]any{
				"name":      s.Events[i].Name,
				"timestamp": SentinelTimestamp,
			}
			if attrs := normalizeAttrs(s.Events[i].Attributes, m); len(attrs) > 0 {
				ev["attributes"] = attrs
			}
			events[i] = ev
		}
		row["events"] = events
	}
	return row
}

func normalizeAttrs(attrs map[string]string, m *Matchers) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = m.replaceValue(k, v)
	}
	return out
}

// namePath renders the root-to-span chain of names, e.g. "run/step/fetch".
// Cycles terminate at the first repeated index.
func namePath(tr *trace.Trace, idx int) string {
	var names []string
	seen := make(map[int]bool)
	for node := idx; node != trace.NoParent && !seen[node]; node = tr.Parent(node) {
		seen[node] = true
		names = append(names, tr.Span(node).Name)
	}
	// Reverse into root-first order.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// contentKey serializes a row for sorting. Canonical marshaling of a
// normalized row cannot fail: the value model contains only strings, bools,
// arrays, and objects by construction.
func contentKey(row map[string]any) string {
	b, err := MarshalCanonical(row)
	if err != nil {
		panic(fmt.Sprintf("normalized row not canonical: %v", err))
	}
	return string(b)
}
