package trace

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// FromOTLP converts an OTLP TracesData message into span records.
//
// This is the ingestion boundary for traces exported by an OTEL-compatible
// collector: span and parent identifiers are hex encoded, unix-nano
// timestamps become time.Time, and resource attributes are fanned out onto
// every span from the same resource.
func FromOTLP(data *tracepb.TracesData) []Span {
	var spans []Span
	for _, rs := range data.ResourceSpans {
		resource := make(map[string]string)
		if rs.Resource != nil {
			for _, attr := range rs.Resource.Attributes {
				resource[attr.Key] = anyValueString(attr.Value)
			}
		}
		for _, ss := range rs.ScopeSpans {
			for _, sp := range ss.Spans {
				spans = append(spans, fromOTLPSpan(sp, resource))
			}
		}
	}
	return spans
}

// ParseOTLPJSON decodes a protojson-encoded TracesData document (the format
// produced by the collector's file exporter) into span records.
func ParseOTLPJSON(data []byte) ([]Span, error) {
	var td tracepb.TracesData
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("failed to parse OTLP JSON: %w", err)
	}
	return FromOTLP(&td), nil
}

func fromOTLPSpan(sp *tracepb.Span, resource map[string]string) Span {
	attributes := make(map[string]string, len(sp.Attributes))
	for _, attr := range sp.Attributes {
		attributes[attr.Key] = anyValueString(attr.Value)
	}

	events := make([]Event, len(sp.Events))
	for i, ev := range sp.Events {
		evAttrs := make(map[string]string, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			evAttrs[attr.Key] = anyValueString(attr.Value)
		}
		events[i] = Event{
			Name:       ev.Name,
			Timestamp:  time.Unix(0, int64(ev.TimeUnixNano)).UTC(),
			Attributes: evAttrs,
		}
	}

	status, message := fromOTLPStatus(sp.Status)

	return Span{
		ID:            hex.EncodeToString(sp.SpanId),
		ParentID:      hex.EncodeToString(sp.ParentSpanId),
		Name:          sp.Name,
		StartTime:     time.Unix(0, int64(sp.StartTimeUnixNano)).UTC(),
		EndTime:       time.Unix(0, int64(sp.EndTimeUnixNano)).UTC(),
		Status:        status,
		StatusMessage: message,
		Attributes:    attributes,
		Events:        events,
		Resource:      resource,
	}
}

func fromOTLPStatus(st *tracepb.Status) (Status, string) {
	if st == nil {
		return StatusUnset, ""
	}
	switch st.Code {
	case tracepb.Status_STATUS_CODE_OK:
		return StatusOK, st.Message
	case tracepb.Status_STATUS_CODE_ERROR:
		return StatusError, st.Message
	default:
		return StatusUnset, st.Message
	}
}

// anyValueString renders an OTLP attribute value as a string.
func anyValueString(v *commonpb.AnyValue) string {
	if v == nil {
		return ""
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return strconv.FormatInt(val.IntValue, 10)
	case *commonpb.AnyValue_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'g', -1, 64)
	case *commonpb.AnyValue_BytesValue:
		return hex.EncodeToString(val.BytesValue)
	default:
		return v.String()
	}
}
