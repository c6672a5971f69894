// Package expect defines the declarative expectation specification consumed
// by the validators.
//
// A Spec is a flat document with one optional section per validator. Specs
// are conventionally authored in YAML or CUE; both loaders produce the same
// Spec value. Validate must be called (the orchestrator does) before any
// validator consumes a section: structurally invalid specs are rejected with
// a *SchemaError before any checking starts.
package expect

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tracecheck/tracecheck/internal/trace"
)

// Spec is the full expectation specification for one validation run.
// Every section is optional, but a Spec with zero sections is invalid:
// validating nothing must never produce a PASS.
type Spec struct {
	Spans       []SpanAssertion  `yaml:"spans,omitempty" json:"spans,omitempty"`
	Graph       *GraphSpec       `yaml:"graph,omitempty" json:"graph,omitempty"`
	Counts      *CountSpec       `yaml:"counts,omitempty" json:"counts,omitempty"`
	Windows     []WindowSpec     `yaml:"windows,omitempty" json:"windows,omitempty"`
	Order       []OrderSpec      `yaml:"order,omitempty" json:"order,omitempty"`
	Status      *StatusSpec      `yaml:"status,omitempty" json:"status,omitempty"`
	Hermeticity *HermeticitySpec `yaml:"hermeticity,omitempty" json:"hermeticity,omitempty"`
}

// SpanAssertion requires a named span to exist with the given shape.
type SpanAssertion struct {
	// Name of the span that must exist. Exact match, not a pattern.
	Name string `yaml:"name" json:"name"`

	// Parent, when set, requires at least one matching span whose parent
	// has this name.
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`

	// Attributes maps keys to required exact values.
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`

	// HasAttributes lists keys that must be present, any value.
	HasAttributes []string `yaml:"has_attributes,omitempty" json:"has_attributes,omitempty"`

	// Events lists event names that must be present (membership, not order).
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`

	// MinDuration/MaxDuration bound the span's elapsed time when set.
	MinDuration Duration `yaml:"min_duration,omitempty" json:"min_duration,omitempty"`
	MaxDuration Duration `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
}

// Edge is a required parent→child relationship, by span name.
type Edge struct {
	Parent string `yaml:"parent" json:"parent"`
	Child  string `yaml:"child" json:"child"`
}

// GraphSpec constrains the topology of the span forest.
type GraphSpec struct {
	// MustInclude lists edges that must exist somewhere in the forest.
	MustInclude []Edge `yaml:"must_include,omitempty" json:"must_include,omitempty"`

	// Acyclic requires the forest to contain no parent-link cycles.
	Acyclic bool `yaml:"acyclic,omitempty" json:"acyclic,omitempty"`

	// MaxDepth bounds the longest root-to-leaf chain. Zero means unbounded.
	MaxDepth int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
}

// Bound is a numeric range constraint. Nil fields are unconstrained.
// EQ is shorthand for GTE == LTE and may not be combined with either.
type Bound struct {
	GTE *int `yaml:"gte,omitempty" json:"gte,omitempty"`
	LTE *int `yaml:"lte,omitempty" json:"lte,omitempty"`
	EQ  *int `yaml:"eq,omitempty" json:"eq,omitempty"`
}

// Holds reports whether n satisfies the bound.
func (b *Bound) Holds(n int) bool {
	if b.EQ != nil && n != *b.EQ {
		return false
	}
	if b.GTE != nil && n < *b.GTE {
		return false
	}
	if b.LTE != nil && n > *b.LTE {
		return false
	}
	return true
}

// String renders the bound for violation messages, e.g. "eq 5" or "gte 2, lte 4".
func (b *Bound) String() string {
	var parts []string
	if b.EQ != nil {
		parts = append(parts, fmt.Sprintf("eq %d", *b.EQ))
	}
	if b.GTE != nil {
		parts = append(parts, fmt.Sprintf("gte %d", *b.GTE))
	}
	if b.LTE != nil {
		parts = append(parts, fmt.Sprintf("lte %d", *b.LTE))
	}
	if len(parts) == 0 {
		return "(unbounded)"
	}
	return strings.Join(parts, ", ")
}

func (b *Bound) validate(field string) error {
	if b.GTE == nil && b.LTE == nil && b.EQ == nil {
		return &SchemaError{Field: field, Message: "bound has no gte, lte, or eq"}
	}
	if b.EQ != nil && (b.GTE != nil || b.LTE != nil) {
		return &SchemaError{Field: field, Message: "eq cannot be combined with gte or lte"}
	}
	if b.GTE != nil && b.LTE != nil && *b.LTE < *b.GTE {
		return &SchemaError{Field: field, Message: fmt.Sprintf("lte %d is below gte %d", *b.LTE, *b.GTE)}
	}
	for _, v := range []*int{b.GTE, b.LTE, b.EQ} {
		if v != nil && *v < 0 {
			return &SchemaError{Field: field, Message: "bounds must be non-negative"}
		}
	}
	return nil
}

// CountSpec constrains span and event counts.
type CountSpec struct {
	// SpansTotal bounds the total number of spans in the trace.
	SpansTotal *Bound `yaml:"spans_total,omitempty" json:"spans_total,omitempty"`

	// EventsTotal bounds the total number of events across all spans.
	EventsTotal *Bound `yaml:"events_total,omitempty" json:"events_total,omitempty"`

	// PerName bounds the span count per name pattern (path.Match glob).
	PerName map[string]Bound `yaml:"per_name,omitempty" json:"per_name,omitempty"`
}

// WindowSpec requires inner spans to lie temporally inside an outer span.
type WindowSpec struct {
	// Outer is the enclosing span name.
	Outer string `yaml:"outer" json:"outer"`

	// Inner lists the span names that must be contained in the outer span.
	Inner []string `yaml:"inner" json:"inner"`

	// OuterIndex disambiguates multiple same-named outer spans by start-time
	// order (0-based). When nil, the nearest enclosing instance is matched.
	OuterIndex *int `yaml:"outer_index,omitempty" json:"outer_index,omitempty"`
}

// OrderSpec requires every instance of First to complete no later than the
// paired instance of Then begins.
type OrderSpec struct {
	First string `yaml:"first" json:"first"`
	Then  string `yaml:"then" json:"then"`
}

// StatusSpec constrains span statuses.
type StatusSpec struct {
	// AllOK requires every span to have status OK unless an override matches.
	AllOK bool `yaml:"all_ok,omitempty" json:"all_ok,omitempty"`

	// Overrides maps a name pattern to the status expected for matching
	// spans (OK, ERROR, or UNSET). The first matching pattern, in
	// lexicographic pattern order, wins.
	Overrides map[string]string `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// HermeticitySpec detects external dependencies and leaked state.
type HermeticitySpec struct {
	// Resource maps required resource-attribute keys to required values.
	// Every span's resource attributes must carry them.
	Resource map[string]string `yaml:"resource,omitempty" json:"resource,omitempty"`

	// ForbiddenKeys lists attribute keys that must not appear on any span.
	ForbiddenKeys []string `yaml:"forbidden_keys,omitempty" json:"forbidden_keys,omitempty"`

	// NoExternalPeers forbids attributes that indicate a network peer
	// outside AllowedPeers.
	NoExternalPeers bool `yaml:"no_external_peers,omitempty" json:"no_external_peers,omitempty"`

	// AllowedPeers lists peer hosts that are considered hermetic.
	// Loopback addresses and localhost are always allowed.
	AllowedPeers []string `yaml:"allowed_peers,omitempty" json:"allowed_peers,omitempty"`
}

// SchemaError reports a structurally invalid expectation spec.
// Schema errors are hard failures raised before any validator runs.
type SchemaError struct {
	Field   string // dotted path to the offending field
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid spec: " + e.Message
	}
	return fmt.Sprintf("invalid spec: %s: %s", e.Field, e.Message)
}

// Sections returns the number of populated sections.
func (s *Spec) Sections() int {
	n := 0
	if len(s.Spans) > 0 {
		n++
	}
	if s.Graph != nil {
		n++
	}
	if s.Counts != nil {
		n++
	}
	if len(s.Windows) > 0 {
		n++
	}
	if len(s.Order) > 0 {
		n++
	}
	if s.Status != nil {
		n++
	}
	if s.Hermeticity != nil {
		n++
	}
	return n
}

// Validate checks the spec's structure and returns a *SchemaError on the
// first problem found. A valid spec has at least one section and every
// section is internally consistent.
func (s *Spec) Validate() error {
	if s.Sections() == 0 {
		return &SchemaError{Message: "spec has no sections; validating nothing is not a pass"}
	}

	for i, sa := range s.Spans {
		field := fmt.Sprintf("spans[%d]", i)
		if sa.Name == "" {
			return &SchemaError{Field: field, Message: "name is required"}
		}
		if sa.MinDuration < 0 || sa.MaxDuration < 0 {
			return &SchemaError{Field: field, Message: "durations must be non-negative"}
		}
		if sa.MinDuration > 0 && sa.MaxDuration > 0 && sa.MaxDuration < sa.MinDuration {
			return &SchemaError{Field: field, Message: "max_duration is below min_duration"}
		}
	}

	if g := s.Graph; g != nil {
		if len(g.MustInclude) == 0 && !g.Acyclic && g.MaxDepth == 0 {
			return &SchemaError{Field: "graph", Message: "section is empty"}
		}
		for i, e := range g.MustInclude {
			if e.Parent == "" || e.Child == "" {
				return &SchemaError{Field: fmt.Sprintf("graph.must_include[%d]", i), Message: "parent and child are required"}
			}
		}
		if g.MaxDepth < 0 {
			return &SchemaError{Field: "graph.max_depth", Message: "must be non-negative"}
		}
	}

	if c := s.Counts; c != nil {
		if c.SpansTotal == nil && c.EventsTotal == nil && len(c.PerName) == 0 {
			return &SchemaError{Field: "counts", Message: "section is empty"}
		}
		if c.SpansTotal != nil {
			if err := c.SpansTotal.validate("counts.spans_total"); err != nil {
				return err
			}
		}
		if c.EventsTotal != nil {
			if err := c.EventsTotal.validate("counts.events_total"); err != nil {
				return err
			}
		}
		for pattern, b := range c.PerName {
			field := fmt.Sprintf("counts.per_name[%q]", pattern)
			if err := validatePattern(field, pattern); err != nil {
				return err
			}
			bound := b
			if err := bound.validate(field); err != nil {
				return err
			}
		}
	}

	for i, w := range s.Windows {
		field := fmt.Sprintf("windows[%d]", i)
		if w.Outer == "" {
			return &SchemaError{Field: field, Message: "outer is required"}
		}
		if len(w.Inner) == 0 {
			return &SchemaError{Field: field, Message: "inner list must be non-empty"}
		}
		if w.OuterIndex != nil && *w.OuterIndex < 0 {
			return &SchemaError{Field: field + ".outer_index", Message: "must be non-negative"}
		}
	}

	for i, o := range s.Order {
		field := fmt.Sprintf("order[%d]", i)
		if o.First == "" || o.Then == "" {
			return &SchemaError{Field: field, Message: "first and then are required"}
		}
		if o.First == o.Then {
			return &SchemaError{Field: field, Message: "first and then must differ"}
		}
	}

	if st := s.Status; st != nil {
		if !st.AllOK && len(st.Overrides) == 0 {
			return &SchemaError{Field: "status", Message: "section is empty"}
		}
		for pattern, want := range st.Overrides {
			field := fmt.Sprintf("status.overrides[%q]", pattern)
			if err := validatePattern(field, pattern); err != nil {
				return err
			}
			if !trace.Status(want).Valid() {
				return &SchemaError{Field: field, Message: fmt.Sprintf("unknown status %q", want)}
			}
		}
	}

	if h := s.Hermeticity; h != nil {
		if len(h.Resource) == 0 && len(h.ForbiddenKeys) == 0 && !h.NoExternalPeers {
			return &SchemaError{Field: "hermeticity", Message: "section is empty"}
		}
		for i, key := range h.ForbiddenKeys {
			if key == "" {
				return &SchemaError{Field: fmt.Sprintf("hermeticity.forbidden_keys[%d]", i), Message: "key must be non-empty"}
			}
		}
	}

	return nil
}

// validatePattern rejects glob patterns that path.Match cannot parse.
func validatePattern(field, pattern string) error {
	if pattern == "" {
		return &SchemaError{Field: field, Message: "pattern must be non-empty"}
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return &SchemaError{Field: field, Message: fmt.Sprintf("malformed pattern: %v", err)}
	}
	return nil
}

// Duration is a time.Duration that decodes from "150ms"-style strings in
// YAML, CUE, and JSON documents.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.parse(raw)
}

// UnmarshalJSON implements json.Unmarshaler. CUE decoding goes through this.
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	return d.parse(raw)
}

func (d *Duration) parse(raw string) error {
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }
