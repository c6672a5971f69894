package expect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML expectation spec.
// Unknown fields are rejected so typos ("window:" vs "windows:") fail loudly
// instead of silently skipping a validator.
func ParseYAML(data []byte) (*Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse spec YAML: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ParseCUE evaluates a CUE document and decodes it into a Spec.
// Uses the CUE SDK's Go API directly, not a CLI subprocess. The document's
// top-level struct must have the same sections as the YAML form.
func ParseCUE(data []byte) (*Spec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile spec CUE: %s", cueerrors.Details(err, nil))
	}
	var spec Spec
	if err := v.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec CUE: %s", cueerrors.Details(err, nil))
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadFile reads an expectation spec from a file, picking the decoder by
// extension (.cue, .yaml, .yml).
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported spec file extension: %s", path)
	}
}
