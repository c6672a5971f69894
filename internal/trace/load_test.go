package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
spans:
  - id: a
    name: run
    start_time: 2024-03-01T12:00:00Z
    end_time: 2024-03-01T12:00:01Z
    status: OK
    attributes:
      service.name: worker
  - id: b
    parent_id: a
    name: step
    start_time: 2024-03-01T12:00:00.1Z
    end_time: 2024-03-01T12:00:00.9Z
    events:
      - name: retried
        timestamp: 2024-03-01T12:00:00.5Z
`

func TestParseYAML_Fixture(t *testing.T) {
	spans, err := ParseYAML([]byte(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, "run", spans[0].Name)
	assert.Equal(t, StatusOK, spans[0].Status)
	assert.Equal(t, "worker", spans[0].Attributes["service.name"])

	assert.Equal(t, "a", spans[1].ParentID)
	assert.Equal(t, StatusUnset, spans[1].Status, "missing status defaults to UNSET")
	require.Len(t, spans[1].Events, 1)
	assert.Equal(t, "retried", spans[1].Events[0].Name)
}

func TestParseYAML_RejectsUnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("spans:\n  - id: a\n    nmae: typo\n"))
	require.Error(t, err)
}

func TestParseYAML_RejectsUnknownStatus(t *testing.T) {
	_, err := ParseYAML([]byte("spans:\n  - id: a\n    name: run\n    status: MAYBE\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestParseYAML_RejectsInvertedInterval(t *testing.T) {
	doc := `
spans:
  - id: a
    name: run
    start_time: 2024-03-01T12:00:05Z
    end_time: 2024-03-01T12:00:00Z
`
	_, err := ParseYAML([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_time before start_time")
}

func TestLoadFile_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "trace.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(fixtureYAML), 0o644))
	spans, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, spans, 2)

	txtPath := filepath.Join(dir, "trace.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("spans: []"), 0o644))
	_, err = LoadFile(txtPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace file extension")
}
