package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTestCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommand_ScenariosPass(t *testing.T) {
	out, err := runTestCommand(t, "testdata/scenarios")
	require.NoError(t, err, "output: %s", out)

	assert.Contains(t, out, "✓ connect_remove")
	assert.Contains(t, out, "✓ merge_rejected")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := runTestCommand(t, "testdata/scenarios", "--filter", "merge*")
	require.NoError(t, err)

	assert.Contains(t, out, "merge_rejected")
	assert.NotContains(t, out, "connect_remove")
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := runTestCommand(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := runTestCommand(t, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

const failingScenario = `
name: failing
description: "expects a merge to succeed"
flow:
  - op: connect
    spaces: [{id: A}, {id: B}]
  - op: connect
    spaces: [{id: B}, {id: C}]
assertions:
  - type: consistent
`

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingScenario), 0644))

	out, err := runTestCommand(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "expected outcome ok, got GROUP_MERGE_UNSUPPORTED")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := t.TempDir()
	scenario, err := os.ReadFile("testdata/scenarios/connect_remove.yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "connect_remove.yaml"), scenario, 0644))

	_, err = runTestCommand(t, dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "connect_remove.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile("testdata/scenarios/golden/connect_remove.golden")
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	// A stale golden file fails the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "connect_remove.golden"), []byte("{}"), 0644))
	out, err := runTestCommand(t, dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/scenarios"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Len(t, resp.Data.Scenarios, 2)
}
