package harness

import "github.com/modelproof/estcheck/internal/registry"

// Tag names consulted by the exclusion policy.
const (
	// TagSkipByName lists test names an estimator class opts out of.
	TagSkipByName = "tests:skip_by_name"
	// TagScenarioEnabled gates scenarios for progressive rollout. A
	// scenario without this tag set to true is excluded everywhere.
	TagScenarioEnabled = "is_enabled"
	// TagFhPassedInFit marks scenarios that supply the forecast horizon
	// at fit time. State-mutation checks are invalid when it is false,
	// because the horizon is then stored during predict.
	TagFhPassedInFit = "fh_passed_in_fit"
)

// stateMutationTests are the checks that assert no state change across
// non-state-changing methods; scenarios passing the horizon late would fail
// them spuriously and are excluded.
var stateMutationTests = map[string]bool{
	"test_non_state_changing_method_contract": true,
}

// Policy decides which (test, estimator) and (test, scenario) pairs are
// skipped. It combines the configured static denylist with per-class and
// per-scenario tags. Pure predicates, no side effects.
type Policy struct {
	// ExcludedTests maps estimator class names to test names to skip,
	// mirroring the harness configuration file.
	ExcludedTests map[string][]string
}

// IsExcluded reports whether a test is excluded for an estimator class.
// Two independent sources of truth: the static denylist, and the class's
// own skip-by-name tag. Either one flags the pair.
func (p Policy) IsExcluded(testName string, class *registry.Entry) bool {
	for _, name := range p.ExcludedTests[class.Name] {
		if name == testName {
			return true
		}
	}
	for _, name := range class.ClassTags.GetStrings(TagSkipByName) {
		if name == testName {
			return true
		}
	}
	return false
}

// ExcludedScenario reports whether a scenario is skipped for a test.
func (p Policy) ExcludedScenario(testName string, scenario registry.Scenario) bool {
	if stateMutationTests[testName] {
		if enabled, ok := scenario.GetTag(TagFhPassedInFit, true).(bool); ok && !enabled {
			return true
		}
	}

	// Scenarios default to excluded unless explicitly marked enabled, so
	// new scenario types can land without immediately running everywhere.
	if enabled, ok := scenario.GetTag(TagScenarioEnabled, false).(bool); !ok || !enabled {
		return true
	}
	return false
}
