package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecheck/tracecheck/internal/store"
)

func TestHistory_EmptyScenario(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCommand(t, "history", "checkout", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `no runs recorded for scenario "checkout"`)
}

func TestHistory_ListsRecordedRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	tracePath := writeFile(t, dir, "trace.yaml", passingTrace)
	specPath := writeFile(t, dir, "spec.yaml", passingSpec)

	_, err := runCommand(t, "check", tracePath, specPath, "--db", dbPath, "--scenario", "checkout")
	require.NoError(t, err)
	_, err = runCommand(t, "digest", tracePath, "--record", "--db", dbPath, "--scenario", "checkout")
	require.NoError(t, err)

	out, err := runCommand(t, "history", "checkout", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "DIGEST")
}

func TestHistory_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	tracePath := writeFile(t, dir, "trace.yaml", passingTrace)
	specPath := writeFile(t, dir, "spec.yaml", failingSpec)

	_, err := runCommand(t, "check", tracePath, specPath, "--db", dbPath, "--scenario", "checkout")
	require.Error(t, err, "the check itself fails, but the run is still recorded")

	out, err := runCommand(t, "history", "checkout", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var runs []store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "FAIL", runs[0].Verdict)
	require.Len(t, runs[0].Violations, 1)
	assert.Equal(t, "spans_total", runs[0].Violations[0].Rule)
}
