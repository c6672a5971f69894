package trace

import "time"

// Status is the outcome recorded on a span.
// Mirrors the OTLP status code set: UNSET, OK, ERROR.
type Status string

const (
	// StatusUnset means the span finished without an explicit status.
	StatusUnset Status = "UNSET"

	// StatusOK means the span completed successfully.
	StatusOK Status = "OK"

	// StatusError means the span recorded a failure.
	StatusError Status = "ERROR"
)

// Valid reports whether s is one of the three known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusUnset, StatusOK, StatusError:
		return true
	}
	return false
}

// Event is a timestamped annotation attached to a span.
// Events keep their arrival order; timestamps are not required to be monotonic.
type Event struct {
	Name       string            `json:"name" yaml:"name"`
	Timestamp  time.Time         `json:"timestamp" yaml:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Span is one timed unit of work collected from an execution.
//
// Spans are value types: Build copies them into the trace arena and nothing
// mutates them afterwards. ParentID is empty for root spans. Resource holds
// the resource attributes shared by all spans from the same service instance.
type Span struct {
	ID            string            `json:"id" yaml:"id"`
	ParentID      string            `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Name          string            `json:"name" yaml:"name"`
	StartTime     time.Time         `json:"start_time" yaml:"start_time"`
	EndTime       time.Time         `json:"end_time" yaml:"end_time"`
	Status        Status            `json:"status" yaml:"status"`
	StatusMessage string            `json:"status_message,omitempty" yaml:"status_message,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Events        []Event           `json:"events,omitempty" yaml:"events,omitempty"`
	Resource      map[string]string `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// Duration returns the span's elapsed time.
func (s *Span) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Contains reports whether the interval of inner lies fully inside s.
// Boundaries are inclusive on both ends.
func (s *Span) Contains(inner *Span) bool {
	return !s.StartTime.After(inner.StartTime) && !inner.EndTime.After(s.EndTime)
}
