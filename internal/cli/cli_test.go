package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/modelproof/estcheck/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(testutil.NewDemoDirectory())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "checks")
	assert.Error(t, err)
}

func TestRunSingleEstimatorText(t *testing.T) {
	out, _, err := execute(t, "run", "--estimator", "NaiveForecaster", "--test", "test_constructor")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 skipped, 0 failed (1 total)")
}

func TestRunFullSuiteJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, data["failed"])
	assert.NotZero(t, data["passed"])
}

func TestRunFailureSetsExitCode(t *testing.T) {
	out, _, err := execute(t, "run", "--estimator", "ManglingForecaster", "--test", "test_set_params")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "test_set_params[ManglingForecaster]: FAILED")
}

func TestRunUnknownEstimatorIsCommandError(t *testing.T) {
	_, _, err := execute(t, "run", "--estimator", "NoSuchForecaster")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunUnknownTestIsCommandError(t *testing.T) {
	_, _, err := execute(t, "run", "--test", "test_does_not_exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
excluded_tests: NaiveForecaster: ["test_constructor"]
`), 0o644))

	out, _, err := execute(t, "run", "--config", path,
		"--estimator", "NaiveForecaster", "--test", "test_constructor")
	require.NoError(t, err)
	assert.Contains(t, out, "0 passed, 0 skipped, 0 failed (0 total)")
}

func TestRunRecordsHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")

	out, _, err := execute(t, "--format", "json", "run", "--db", db,
		"--estimator", "NaiveForecaster", "--test", "test_constructor")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	runID := resp.Data.(map[string]any)["run_id"].(string)
	require.NotEmpty(t, runID)

	listing, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listing, runID)

	detail, _, err := execute(t, "history", "--db", db, runID)
	require.NoError(t, err)
	assert.Contains(t, detail, "test_constructor[NaiveForecaster]: PASSED")
}

func TestHistoryUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	_, _, err := execute(t, "run", "--db", db, "--estimator", "NaiveForecaster", "--test", "test_clone")
	require.NoError(t, err)

	_, _, err = execute(t, "history", "--db", db, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunWritesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")

	_, _, err := execute(t, "run", "--estimator", "NaiveForecaster",
		"--test", "test_constructor", "--manifest", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var manifest runManifest
	require.NoError(t, yaml.Unmarshal(data, &manifest))
	assert.Equal(t, 1, manifest.Summary.Passed)
	require.Len(t, manifest.Outcomes, 1)
	assert.Equal(t, "test_constructor[NaiveForecaster]", manifest.Outcomes[0].Key)
	assert.Equal(t, "PASSED", manifest.Outcomes[0].Status)
}

func TestListHidesOptedOutClasses(t *testing.T) {
	out, _, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NaiveForecaster (forecaster)")
	assert.NotContains(t, out, "LeakyForecaster")
}

func TestListAllShowsOptedOutClasses(t *testing.T) {
	out, _, err := execute(t, "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "LeakyForecaster (forecaster) [skipped]")
}

func TestChecksListsRegisteredNames(t *testing.T) {
	out, _, err := execute(t, "checks")
	require.NoError(t, err)
	assert.Contains(t, out, "test_constructor")
	assert.Contains(t, out, "test_non_state_changing_method_contract")
}

func TestRunFailureOutputGolden(t *testing.T) {
	out, _, err := execute(t, "run", "--estimator", "ManglingForecaster", "--test", "test_set_params")
	require.Error(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_failure_output", []byte(out))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "inner")
}

func TestOutputFormatterJSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("E001", "boom", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E001", resp.Error.Code)
}
