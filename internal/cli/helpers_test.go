package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with the given args and returns captured
// stdout plus the command error.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFile drops content into dir under name and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const passingTrace = `
spans:
  - id: aa01
    name: run
    start_time: 2024-03-01T12:00:00Z
    end_time: 2024-03-01T12:00:01Z
    status: OK
  - id: aa02
    parent_id: aa01
    name: step
    start_time: 2024-03-01T12:00:00.1Z
    end_time: 2024-03-01T12:00:00.9Z
    status: OK
`

// Same execution as passingTrace, re-collected: different ids, shifted clock.
const passingTraceRerun = `
spans:
  - id: bb01
    name: run
    start_time: 2024-03-01T15:30:00Z
    end_time: 2024-03-01T15:30:01Z
    status: OK
  - id: bb02
    parent_id: bb01
    name: step
    start_time: 2024-03-01T15:30:00.1Z
    end_time: 2024-03-01T15:30:00.9Z
    status: OK
`

const divergedTrace = `
spans:
  - id: cc01
    name: run
    start_time: 2024-03-01T12:00:00Z
    end_time: 2024-03-01T12:00:01Z
    status: ERROR
`

const passingSpec = `
graph:
  must_include:
    - parent: run
      child: step
  acyclic: true
counts:
  spans_total:
    eq: 2
status:
  all_ok: true
`

const failingSpec = `
counts:
  spans_total:
    eq: 5
`
