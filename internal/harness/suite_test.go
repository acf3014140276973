package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelproof/estcheck/internal/fixtures"
	"github.com/modelproof/estcheck/internal/registry"
	"github.com/modelproof/estcheck/internal/testutil"
)

func newDemoSuite(t *testing.T, cfg SuiteConfig) *Suite {
	t.Helper()
	return NewSuite(testutil.NewDemoDirectory(), cfg)
}

func TestPolicyDenylist(t *testing.T) {
	p := Policy{ExcludedTests: map[string][]string{
		"NaiveForecaster": {"test_clone"},
	}}
	entry := &registry.Entry{Name: "NaiveForecaster"}

	assert.True(t, p.IsExcluded("test_clone", entry))
	assert.False(t, p.IsExcluded("test_constructor", entry))
	assert.False(t, p.IsExcluded("test_clone", &registry.Entry{Name: "Other"}))
}

func TestPolicySkipByNameTag(t *testing.T) {
	entry := &registry.Entry{
		Name:      "TaggedForecaster",
		ClassTags: registry.Tags{TagSkipByName: []string{"test_set_params"}},
	}
	p := Policy{}

	assert.True(t, p.IsExcluded("test_set_params", entry))
	assert.False(t, p.IsExcluded("test_get_params", entry))
}

func TestPolicyScenarioEnabledGate(t *testing.T) {
	p := Policy{}
	enabled := &testutil.CannedScenario{
		ScenarioName: "on",
		Tags:         registry.Tags{TagScenarioEnabled: true},
	}
	unmarked := &testutil.CannedScenario{ScenarioName: "off"}

	assert.False(t, p.ExcludedScenario("test_clone_after_fit", enabled))
	assert.True(t, p.ExcludedScenario("test_clone_after_fit", unmarked))
}

func TestPolicyLateHorizonExcludedFromStateMutationChecks(t *testing.T) {
	p := Policy{}
	late := &testutil.CannedScenario{
		ScenarioName: "late",
		Tags:         registry.Tags{TagScenarioEnabled: true, TagFhPassedInFit: false},
	}

	assert.True(t, p.ExcludedScenario("test_non_state_changing_method_contract", late))
	assert.False(t, p.ExcludedScenario("test_methods_have_no_side_effects", late))
}

func TestResolveConstructorKeys(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	res, err := s.Resolve("test_constructor")
	require.NoError(t, err)

	// Broken forecasters carry tests:skip_all, so only the conforming
	// class survives discovery.
	assert.Equal(t, []string{"test_constructor[NaiveForecaster]"}, res.Keys("test_constructor"))
}

func TestResolveConditionalProduct(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	res, err := s.Resolve("test_raises_not_fitted_error")
	require.NoError(t, err)

	// 2 test instances x 2 scenarios x 3 non-state-changing methods.
	keys := res.Keys("test_raises_not_fitted_error")
	assert.Len(t, keys, 12)
	assert.Contains(t, keys, "test_raises_not_fitted_error[NaiveForecaster-0-UnivariateFhInFit-predict]")
	assert.Contains(t, keys, "test_raises_not_fitted_error[NaiveForecaster-1-UnivariateFhInPredict-get_fitted_params]")
}

func TestResolveExcludesLateHorizonScenario(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	res, err := s.Resolve("test_non_state_changing_method_contract")
	require.NoError(t, err)

	keys := res.Keys("test_non_state_changing_method_contract")
	assert.Len(t, keys, 6)
	for _, key := range keys {
		assert.NotContains(t, key, "UnivariateFhInPredict")
	}
}

func TestResolveStaticAxisJoinsFold(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	res, err := s.Resolve("test_no_between_test_case_side_effects")
	require.NoError(t, err)

	// 2 instances x 2 scenarios x 2 axis values; unnamed axis values get
	// index display names.
	keys := res.Keys("test_no_between_test_case_side_effects")
	assert.Len(t, keys, 8)
	assert.Contains(t, keys, "test_no_between_test_case_side_effects[NaiveForecaster-0-UnivariateFhInFit-0]")
	assert.Contains(t, keys, "test_no_between_test_case_side_effects[NaiveForecaster-1-UnivariateFhInPredict-1]")
}

func TestResolveUnknownCheck(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	_, err := s.Resolve("test_does_not_exist")
	var cfgErr *fixtures.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestResolveHonorsDenylist(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{
		Policy: Policy{ExcludedTests: map[string][]string{
			"NaiveForecaster": {"test_constructor"},
		}},
	})

	res, err := s.Resolve("test_constructor")
	require.NoError(t, err)
	assert.Empty(t, res.Keys("test_constructor"))
}

func TestRegisterCheckRejectsDuplicates(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	err := s.RegisterCheck(&Check{Name: "test_constructor", Fn: func(*Context) error { return nil }})
	assert.Error(t, err)
}

func TestRegisterCheckRequiresNameAndBody(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{})

	assert.Error(t, s.RegisterCheck(&Check{Fn: func(*Context) error { return nil }}))
	assert.Error(t, s.RegisterCheck(&Check{Name: "test_bodyless"}))
}

func TestScitypeFilterPrunesEverything(t *testing.T) {
	s := newDemoSuite(t, SuiteConfig{
		Discovery: registry.DiscoverOptions{Scitype: "classifier"},
	})

	res, err := s.Resolve("test_constructor")
	require.NoError(t, err)
	assert.Empty(t, res.Keys("test_constructor"))
}
