package trace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fixture is the YAML document shape for hand-written traces.
type fixture struct {
	Spans []Span `yaml:"spans"`
}

// ParseYAML decodes a YAML trace fixture into span records.
// Unknown fields are rejected so fixture typos fail loudly.
func ParseYAML(data []byte) ([]Span, error) {
	var f fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse trace fixture: %w", err)
	}
	for i := range f.Spans {
		s := &f.Spans[i]
		if s.Status == "" {
			s.Status = StatusUnset
		}
		if !s.Status.Valid() {
			return nil, fmt.Errorf("span %q: unknown status %q", s.ID, s.Status)
		}
		if s.EndTime.Before(s.StartTime) {
			return nil, fmt.Errorf("span %q: end_time before start_time", s.ID)
		}
	}
	return f.Spans, nil
}

// LoadFile reads span records from a file, picking the decoder by extension:
// .json is treated as an OTLP protojson document, .yaml/.yml as a fixture.
func LoadFile(path string) ([]Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseOTLPJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported trace file extension: %s", path)
	}
}
