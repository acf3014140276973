package harness

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelproof/estcheck/internal/fixtures"
	"github.com/modelproof/estcheck/internal/testutil"
)

func TestRunAllDemoDirectoryConforms(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	results, err := s.RunAll(RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	passed, skipped, failed := results.Counts()
	assert.Zero(t, failed, "unexpected failures: %v", failingKeys(results))
	assert.Zero(t, skipped)
	assert.Equal(t, len(results), passed)
	assert.Equal(t, Outcome{Status: Passed}, results["test_constructor[NaiveForecaster]"])
}

func TestRunTestsClassSingleTest(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	results, err := s.RunTests(entry, RunOptions{TestsToRun: "test_constructor"})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "PASSED", results["test_constructor[NaiveForecaster]"].String())
}

func TestRunTestsInstance(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	inst, err := testutil.NewNaiveForecaster(map[string]any{"strategy": "mean"})
	require.NoError(t, err)

	results, err := s.RunTests(inst, RunOptions{TestsToRun: "test_clone"})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, Passed, results["test_clone[NaiveForecaster]"].Status)
}

func TestRunTestsFixtureExactMatch(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	inst, err := testutil.NewNaiveForecaster(nil)
	require.NoError(t, err)

	key := "test_raises_not_fitted_error[NaiveForecaster-UnivariateFhInFit-predict]"
	results, err := s.RunTests(inst, RunOptions{FixturesToRun: key})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, Passed, results[key].Status)
}

func TestRunTestsUnionOfTestsAndFixtures(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	inst, err := testutil.NewNaiveForecaster(nil)
	require.NoError(t, err)

	key := "test_raises_not_fitted_error[NaiveForecaster-UnivariateFhInFit-predict]"
	results, err := s.RunTests(inst, RunOptions{
		TestsToRun:    "test_constructor",
		FixturesToRun: key,
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Contains(t, results, "test_constructor[NaiveForecaster]")
	assert.Contains(t, results, key)
}

func TestRunTestsExclusionOnlyNarrows(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	results, err := s.RunTests(entry, RunOptions{
		TestsToRun:     []string{"test_constructor", "test_clone"},
		TestsToExclude: "test_clone",
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Contains(t, results, "test_constructor[NaiveForecaster]")
}

func TestRunTestsFixtureExclusion(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	inst, err := testutil.NewNaiveForecaster(nil)
	require.NoError(t, err)

	excluded := "test_raises_not_fitted_error[NaiveForecaster-UnivariateFhInFit-predict]"
	results, err := s.RunTests(inst, RunOptions{
		TestsToRun:        "test_raises_not_fitted_error",
		FixturesToExclude: excluded,
	})
	require.NoError(t, err)

	assert.NotContains(t, results, excluded)
	assert.NotEmpty(t, results)
}

func TestRunTestsBadFilterType(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	_, err := s.RunTests(entry, RunOptions{TestsToRun: 42})
	var cfgErr *fixtures.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRunTestsUnknownTestName(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	_, err := s.RunTests(entry, RunOptions{TestsToRun: "test_no_such_check"})
	var cfgErr *fixtures.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRunTestsRejectsForeignObjects(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	_, err := s.RunTests(42, RunOptions{})
	var cfgErr *fixtures.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRunTestsCatchesParamMangling(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("ManglingForecaster")
	require.True(t, ok)

	results, err := s.RunTests(entry, RunOptions{TestsToRun: "test_set_params"})
	require.NoError(t, err)

	require.Len(t, results, 1)
	outcome := results["test_set_params[ManglingForecaster]"]
	require.Equal(t, Failed, outcome.Status)
	var violation *ContractError
	assert.True(t, errors.As(outcome.Err, &violation))
	assert.Equal(t, "ManglingForecaster", violation.Estimator)
}

func TestRunTestsCatchesStatefulClone(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("LeakyForecaster")
	require.True(t, ok)

	results, err := s.RunTests(entry, RunOptions{TestsToRun: "test_clone_after_fit"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	_, _, failed := results.Counts()
	assert.Equal(t, len(results), failed)
}

func TestRunTestsRaiseExceptionsAbortsEarly(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("ManglingForecaster")
	require.True(t, ok)

	_, err := s.RunTests(entry, RunOptions{
		TestsToRun:      "test_set_params",
		RaiseExceptions: true,
	})
	require.Error(t, err)
	var violation *ContractError
	assert.True(t, errors.As(err, &violation))
}

func TestRunInstancesIsolatedPerAssignment(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	// part1 fits its assignment-local clone; part2 then asserts a fresh
	// instance is unfitted. Registration order guarantees part1 runs
	// first.
	results, err := s.RunTests(entry, RunOptions{
		TestsToRun: []string{
			"test_no_cross_test_side_effects_part1",
			"test_no_cross_test_side_effects_part2",
		},
	})
	require.NoError(t, err)

	_, _, failed := results.Counts()
	assert.Zero(t, failed, "unexpected failures: %v", failingKeys(results))
}

func TestRunTestsHonorsExclusionPolicy(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{
		Policy: Policy{ExcludedTests: map[string][]string{
			"NaiveForecaster": {"test_constructor"},
		}},
	})
	entry, ok := s.Directory().Lookup("NaiveForecaster")
	require.True(t, ok)

	results, err := s.RunTests(entry, RunOptions{TestsToRun: "test_constructor"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunOnePanicBecomesFailure(t *testing.T) {
	check := &Check{
		Name: "test_panics",
		Fn:   func(*Context) error { panic("boom") },
	}

	outcome := runOne(check, &Context{values: map[string]any{}})
	require.Equal(t, Failed, outcome.Status)
	assert.Contains(t, outcome.Err.Error(), "boom")
}

func failingKeys(results Results) []string {
	var keys []string
	for key, o := range results {
		if o.Status == Failed {
			keys = append(keys, key+": "+o.String())
		}
	}
	return keys
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "PASSED", Outcome{Status: Passed}.String())
	assert.Equal(t, "SKIPPED: not applicable", Outcome{Status: Skipped, Reason: "not applicable"}.String())
	failed := Outcome{Status: Failed, Err: errors.New("bad")}
	assert.True(t, strings.HasPrefix(failed.String(), "FAILED: "))
}
