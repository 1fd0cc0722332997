package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shorthand/internal/config"
	"github.com/roach88/shorthand/internal/harness"
)

const passingScenario = `name: by_name
description: contains operator
query:
  from: users
  where: "name*=:kw"
params:
  kw: ann
expect:
  sql: "SELECT * FROM users WHERE name LIKE '%ann%'"
`

const failingScenario = `name: wrong_sql
description: expected SQL does not match
query:
  from: users
expect:
  sql: "SELECT id FROM users"
`

const errorScenario = `name: bad_operator
description: doubled equals sign
query:
  from: users
  where: "a==1"
expect:
  error: UNKNOWN_OPERATOR
`

func scenarioFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join("/scenarios", name), []byte(content), 0o644))
	}
	return fsys
}

func runTestCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCmd(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCmd(t, &RootOptions{Format: "text", Fs: afero.NewMemMapFs()}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/scenarios", 0o755))

	output, err := runTestCmd(t, &RootOptions{Format: "text", Fs: fsys}, "/scenarios")
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/scenarios", 0o755))

	output, err := runTestCmd(t, &RootOptions{Format: "json", Fs: fsys}, "/scenarios")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandPassing(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{
		"by_name.yaml":      passingScenario,
		"bad_operator.yaml": errorScenario,
	})

	output, err := runTestCmd(t, &RootOptions{Format: "text", Fs: fsys}, "/scenarios", "--golden", "/golden")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ bad_operator")
	assert.Contains(t, output, "✓ by_name")
	assert.Contains(t, output, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{
		"by_name.yaml":   passingScenario,
		"wrong_sql.yaml": failingScenario,
		"broken.yaml":    "name: [",
	})

	output, err := runTestCmd(t, &RootOptions{Format: "json", Fs: fsys}, "/scenarios", "--golden", "/golden")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 2, resp.Data.Failed)

	// Outcomes come back in path order.
	require.Len(t, resp.Data.Scenarios, 3)
	assert.Equal(t, "broken", resp.Data.Scenarios[0].Name)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, "by_name", resp.Data.Scenarios[1].Name)
	assert.True(t, resp.Data.Scenarios[1].Pass)
	assert.Equal(t, "wrong_sql", resp.Data.Scenarios[2].Name)
	assert.Contains(t, resp.Data.Scenarios[2].Errors[0], "sql mismatch")
}

func TestTestCommandFilter(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{
		"by_name.yaml":   passingScenario,
		"wrong_sql.yaml": failingScenario,
	})

	output, err := runTestCmd(t, &RootOptions{Format: "text", Fs: fsys}, "/scenarios", "--filter", "by_*", "--golden", "/golden")
	require.NoError(t, err)
	assert.Contains(t, output, "1 total")
	assert.NotContains(t, output, "wrong_sql")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{"by_name.yaml": passingScenario})

	_, err := runTestCmd(t, &RootOptions{Format: "text", Fs: fsys}, "/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{"by_name.yaml": passingScenario})
	opts := &RootOptions{Format: "text", Fs: fsys}

	output, err := runTestCmd(t, opts, "/scenarios", "--golden", "/golden", "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ by_name (golden updated)")

	exists, err := afero.Exists(fsys, harness.GoldenPath("/golden", "by_name"))
	require.NoError(t, err)
	assert.True(t, exists)

	output, err = runTestCmd(t, opts, "/scenarios", "--golden", "/golden")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ by_name")

	// A stale golden file fails the scenario.
	require.NoError(t, afero.WriteFile(fsys, harness.GoldenPath("/golden", "by_name"), []byte("stale\n"), 0o644))
	output, err = runTestCmd(t, opts, "/scenarios", "--golden", "/golden")
	require.Error(t, err)
	assert.Contains(t, output, "does not match golden file")
}

func TestTestCommandUpdateSkipsFailing(t *testing.T) {
	fsys := scenarioFs(t, map[string]string{"wrong_sql.yaml": failingScenario})

	_, err := runTestCmd(t, &RootOptions{Format: "text", Fs: fsys}, "/scenarios", "--golden", "/golden", "--update")
	require.Error(t, err)

	exists, err := afero.Exists(fsys, harness.GoldenPath("/golden", "wrong_sql"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTestOptionsDefaults(t *testing.T) {
	opts := &TestOptions{RootOptions: &RootOptions{}}
	assert.Equal(t, 4, opts.parallel())
	assert.Equal(t, filepath.Join("testdata", "golden"), opts.goldenDir())
	assert.Empty(t, opts.logDB())

	opts.Config = &config.Config{Parallel: 2, GoldenDir: "golden", LogDB: "renders.db"}
	assert.Equal(t, 2, opts.parallel())
	assert.Equal(t, "golden", opts.goldenDir())
	assert.Equal(t, "renders.db", opts.logDB())

	opts.Parallel = 8
	opts.GoldenDir = "other"
	opts.LogDB = "flag.db"
	assert.Equal(t, 8, opts.parallel())
	assert.Equal(t, "other", opts.goldenDir())
	assert.Equal(t, "flag.db", opts.logDB())
}

func TestFilterScenarios(t *testing.T) {
	paths := []string{"/s/cart_add.yaml", "/s/cart_remove.yml", "/s/order.yaml"}

	got, err := filterScenarios(paths, "cart_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"/s/cart_add.yaml", "/s/cart_remove.yml"}, got)

	got, err = filterScenarios(paths, "")
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}
