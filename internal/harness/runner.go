package harness

import (
	"errors"
	"fmt"

	"github.com/modelproof/estcheck/internal/fixtures"
	"github.com/modelproof/estcheck/internal/registry"
)

// RunOptions narrows and shapes one execution pass. The string filters
// accept nil, a single string, or a []string; any other type is a
// configuration error.
type RunOptions struct {
	// TestsToRun and FixturesToRun select work. When both are set, the
	// selection is their union: a test named in TestsToRun executes all
	// of its fixture assignments, and a key in FixturesToRun executes
	// that one assignment even if its test was not named.
	TestsToRun    any
	FixturesToRun any

	// TestsToExclude and FixturesToExclude narrow the selection after
	// TestsToRun and FixturesToRun are applied. They only ever shrink
	// the set.
	TestsToExclude    any
	FixturesToExclude any

	// RaiseExceptions aborts the pass on the first failure instead of
	// recording it as an outcome.
	RaiseExceptions bool

	// Verbose logs every outcome through the suite logger.
	Verbose bool
}

// RunTests executes the registered checks against a single estimator,
// bypassing discovery. The estimator is either a *registry.Entry (run
// against all of the class's test instances) or a registry.Estimator (run
// against clones of that exact instance).
func (s *Suite) RunTests(estimator any, opts RunOptions) (Results, error) {
	overrides, err := s.estimatorOverrides(estimator)
	if err != nil {
		return nil, err
	}
	return s.run(overrides, opts)
}

// RunAll executes the registered checks against every discovered
// estimator class.
func (s *Suite) RunAll(opts RunOptions) (Results, error) {
	return s.run(nil, opts)
}

// estimatorOverrides builds the substitute class and instance generators
// that pin fixture resolution to one estimator.
func (s *Suite) estimatorOverrides(estimator any) (map[string]fixtures.Generator, error) {
	switch est := estimator.(type) {
	case *registry.Entry:
		return map[string]fixtures.Generator{
			VarEstimatorClass: func(testName string, _ fixtures.Resolved) ([]any, []string, error) {
				if s.policy.IsExcluded(testName, est) {
					return nil, nil, nil
				}
				return []any{est}, []string{est.Name}, nil
			},
			VarEstimatorInstance: func(testName string, _ fixtures.Resolved) ([]any, []string, error) {
				if s.policy.IsExcluded(testName, est) {
					return nil, nil, nil
				}
				instances, names, err := est.TestInstances()
				if err != nil {
					return nil, nil, err
				}
				values := make([]any, len(instances))
				for i, inst := range instances {
					values[i] = inst
				}
				return values, names, nil
			},
		}, nil
	case registry.Estimator:
		entry, ok := s.dir.EntryFor(est)
		if !ok {
			return nil, fixtures.Configf("estimator class %q is not registered", est.ClassName())
		}
		return map[string]fixtures.Generator{
			VarEstimatorClass: func(testName string, _ fixtures.Resolved) ([]any, []string, error) {
				if s.policy.IsExcluded(testName, entry) {
					return nil, nil, nil
				}
				return []any{entry}, []string{entry.Name}, nil
			},
			VarEstimatorInstance: func(testName string, _ fixtures.Resolved) ([]any, []string, error) {
				if s.policy.IsExcluded(testName, entry) {
					return nil, nil, nil
				}
				return []any{est.Clone()}, []string{est.ClassName()}, nil
			},
		}, nil
	default:
		return nil, fixtures.Configf("estimator must be a *registry.Entry or a registry.Estimator, got %T", estimator)
	}
}

func (s *Suite) run(overrides map[string]fixtures.Generator, opts RunOptions) (Results, error) {
	testsToRun, err := coerceStrings("tests_to_run", opts.TestsToRun)
	if err != nil {
		return nil, err
	}
	fixturesToRun, err := coerceStrings("fixtures_to_run", opts.FixturesToRun)
	if err != nil {
		return nil, err
	}
	testsToExclude, err := coerceStrings("tests_to_exclude", opts.TestsToExclude)
	if err != nil {
		return nil, err
	}
	fixturesToExclude, err := coerceStrings("fixtures_to_exclude", opts.FixturesToExclude)
	if err != nil {
		return nil, err
	}
	for _, name := range testsToRun {
		if _, ok := s.byName[name]; !ok {
			return nil, fixtures.Configf("tests_to_run names unknown test %q", name)
		}
	}
	for _, name := range testsToExclude {
		if _, ok := s.byName[name]; !ok {
			return nil, fixtures.Configf("tests_to_exclude names unknown test %q", name)
		}
	}
	for _, key := range fixturesToRun {
		if _, ok := s.byName[fixtures.TestNameOf(key)]; !ok {
			return nil, fixtures.Configf("fixtures_to_run names unknown test in key %q", key)
		}
	}

	// Union selection: a test runs all its assignments when named in
	// testsToRun; a key in fixturesToRun admits only that assignment.
	runAllFixtures := make(map[string]bool, len(testsToRun))
	for _, name := range testsToRun {
		runAllFixtures[name] = true
	}
	keysWanted := make(map[string]bool, len(fixturesToRun))
	selected := make(map[string]bool)
	for _, key := range fixturesToRun {
		keysWanted[key] = true
		selected[fixtures.TestNameOf(key)] = true
	}
	for name := range runAllFixtures {
		selected[name] = true
	}
	unfiltered := testsToRun == nil && fixturesToRun == nil

	excludedTests := make(map[string]bool, len(testsToExclude))
	for _, name := range testsToExclude {
		excludedTests[name] = true
	}
	excludedKeys := make(map[string]bool, len(fixturesToExclude))
	for _, key := range fixturesToExclude {
		excludedKeys[key] = true
	}

	results := make(Results)
	for _, check := range s.checks {
		if !unfiltered && !selected[check.Name] {
			continue
		}
		if excludedTests[check.Name] {
			continue
		}

		resolution, err := s.resolveCheck(check, overrides)
		if err != nil {
			return nil, err
		}
		keys := resolution.Keys(check.Name)
		for i, key := range keys {
			if !unfiltered && !runAllFixtures[check.Name] && !keysWanted[key] {
				continue
			}
			if excludedKeys[key] {
				continue
			}

			ctx := s.assignmentContext(check, resolution, i)
			outcome := runOne(check, ctx)
			results[key] = outcome
			if opts.Verbose {
				s.logger.Info("check executed", "key", key, "outcome", outcome.String())
			}
			if outcome.Status == Failed && opts.RaiseExceptions {
				return results, fmt.Errorf("%s: %w", key, outcome.Err)
			}
		}
	}
	return results, nil
}

// assignmentContext binds one resolved assignment into a check context.
// Estimator values are cloned so state never travels between assignments.
func (s *Suite) assignmentContext(check *Check, resolution fixtures.Resolution, i int) *Context {
	values := make(map[string]any, len(resolution.Vars))
	for j, name := range resolution.Vars {
		v := resolution.Assignments[i][j]
		if est, ok := v.(registry.Estimator); ok {
			v = est.Clone()
		}
		values[name] = v
	}
	return &Context{Suite: s, TestName: check.Name, values: values}
}

// runOne executes a check body, converting panics to failures and
// SkipError to a skip outcome.
func runOne(check *Check, ctx *Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Status: Failed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	err := check.Fn(ctx)
	if err == nil {
		return Outcome{Status: Passed}
	}
	var skip *SkipError
	if errors.As(err, &skip) {
		return Outcome{Status: Skipped, Reason: skip.Reason}
	}
	return Outcome{Status: Failed, Err: err}
}

func coerceStrings(flag string, v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, nil
	default:
		return nil, fixtures.Configf("%s must be a string or a list of strings, got %T", flag, v)
	}
}
