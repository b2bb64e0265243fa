package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies one scenario file into a fresh directory.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ queue")
	assert.Contains(t, out, "✓ missing_diff")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios", "--filter", "que*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ queue")
	assert.NotContains(t, out, "missing_diff")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandBadFilter(t *testing.T) {
	_, _, err := execute(t, "test", "testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandJSON(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Equal(t, 0, resp.Data.Failed)
}

func TestTestCommandUpdate(t *testing.T) {
	dir := copyScenario(t, "queue.yaml")

	_, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "golden", "queue.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "scenarios", "golden", "queue.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenario(t, "queue.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "queue.golden"), []byte(`{}`), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ queue")
	assert.Contains(t, out, "do not match golden file")

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommandBrokenScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommandMissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
