package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/modelproof/estcheck/internal/fixtures"
	"github.com/modelproof/estcheck/internal/registry"
)

// SuiteConfig bundles the collaborators and filters a Suite is built from.
type SuiteConfig struct {
	// Discovery controls which estimator classes participate. The Scitype
	// field acts as the suite's estimator type filter.
	Discovery registry.DiscoverOptions

	// Policy is the exclusion policy applied during fixture generation.
	Policy Policy

	// Sequence overrides the canonical fixture ordering. Defaults to
	// DefaultFixtureSequence.
	Sequence []string

	// Logger receives verbose execution output. Defaults to a discard
	// handler.
	Logger *slog.Logger
}

// Suite owns the fixture-generator registry and the registered checks for
// one conformance pass. Generators are registered once at construction via
// an explicit static table and are stable for the life of the suite.
type Suite struct {
	dir       *registry.Directory
	discovery registry.DiscoverOptions
	policy    Policy
	sequence  []string
	logger    *slog.Logger

	generators map[string]fixtures.Generator
	checks     []*Check
	byName     map[string]*Check
}

// NewSuite builds a suite over an injected directory, with the standard
// conformance checks pre-registered.
func NewSuite(dir *registry.Directory, cfg SuiteConfig) *Suite {
	s := &Suite{
		dir:       dir,
		discovery: cfg.Discovery,
		policy:    cfg.Policy,
		sequence:  cfg.Sequence,
		logger:    cfg.Logger,
		byName:    make(map[string]*Check),
	}
	if s.sequence == nil {
		s.sequence = DefaultFixtureSequence
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.generators = map[string]fixtures.Generator{
		VarEstimatorClass:     s.generateEstimatorClass,
		VarEstimatorInstance:  s.generateEstimatorInstance,
		VarScenario:           s.generateScenario,
		VarMethodNSC:          s.generateMethodNSC,
		VarMethodNSCArraylike: s.generateMethodNSCArraylike,
	}

	for _, c := range DefaultChecks() {
		s.MustRegisterCheck(c)
	}
	return s
}

// Directory returns the injected estimator directory.
func (s *Suite) Directory() *registry.Directory { return s.dir }

// Sequence returns the canonical fixture-variable ordering.
func (s *Suite) Sequence() []string { return s.sequence }

// Checks returns the registered checks in registration order.
func (s *Suite) Checks() []*Check {
	out := make([]*Check, len(s.checks))
	copy(out, s.checks)
	return out
}

// RegisterCheck adds a check to the suite. Names must be unique: display
// keys derive from them.
func (s *Suite) RegisterCheck(c *Check) error {
	if c.Name == "" || c.Fn == nil {
		return fmt.Errorf("register check: name and body are required")
	}
	if _, exists := s.byName[c.Name]; exists {
		return fmt.Errorf("register check: duplicate name %q", c.Name)
	}
	s.byName[c.Name] = c
	s.checks = append(s.checks, c)
	return nil
}

// MustRegisterCheck registers a check and panics on error.
func (s *Suite) MustRegisterCheck(c *Check) {
	if err := s.RegisterCheck(c); err != nil {
		panic(err)
	}
}

// Resolve computes the conditional fixture product for one registered
// check, using the suite's generator table and canonical sequence.
func (s *Suite) Resolve(testName string) (fixtures.Resolution, error) {
	check, ok := s.byName[testName]
	if !ok {
		return fixtures.Resolution{}, fixtures.Configf("no check registered with name %q", testName)
	}
	return s.resolveCheck(check, nil)
}

// resolveCheck folds a check's fixture variables and static axes through
// the generator table. Axes participate in the same fold as conditional
// variables, appended after the canonical sequence in declaration order.
// Entries in overrides shadow the suite's generators.
func (s *Suite) resolveCheck(check *Check, overrides map[string]fixtures.Generator) (fixtures.Resolution, error) {
	vars := make([]string, 0, len(check.Vars)+len(check.Params))
	vars = append(vars, check.Vars...)
	sequence := make([]string, 0, len(s.sequence)+len(check.Params))
	sequence = append(sequence, s.sequence...)

	generators := make(map[string]fixtures.Generator, len(s.generators)+len(check.Params)+len(overrides))
	for name, g := range s.generators {
		generators[name] = g
	}
	for _, axis := range check.Params {
		vars = append(vars, axis.Var)
		sequence = append(sequence, axis.Var)
		generators[axis.Var] = fixtures.Fixed(axis.Values, axis.displayNames())
	}
	for name, g := range overrides {
		generators[name] = g
	}
	return fixtures.Resolve(check.Name, vars, generators, sequence)
}

// allEstimators retrieves the estimator classes under test, applying the
// discovery filters (scitype, denylist, tags, matrix subsampling, run
// predicate).
func (s *Suite) allEstimators() []*registry.Entry {
	return registry.Discover(s.dir, s.discovery)
}

// generateEstimatorClass yields the estimator classes not excluded for the
// test by policy.
func (s *Suite) generateEstimatorClass(testName string, _ fixtures.Resolved) ([]any, []string, error) {
	var values []any
	var names []string
	for _, e := range s.allEstimators() {
		if s.policy.IsExcluded(testName, e) {
			continue
		}
		values = append(values, e)
		names = append(names, e.Name)
	}
	return values, names, nil
}

// generateEstimatorInstance yields one instance per declared test parameter
// set of every non-excluded class. Instances produced here are templates;
// the executor clones them freshly per assignment.
func (s *Suite) generateEstimatorInstance(testName string, resolved fixtures.Resolved) ([]any, []string, error) {
	classes, _, err := s.generateEstimatorClass(testName, resolved)
	if err != nil {
		return nil, nil, err
	}
	var values []any
	var names []string
	for _, c := range classes {
		entry := c.(*registry.Entry)
		instances, instNames, err := entry.TestInstances()
		if err != nil {
			return nil, nil, err
		}
		for i, inst := range instances {
			values = append(values, inst)
			names = append(names, instNames[i])
		}
	}
	return values, names, nil
}

// estimatorFromContext extracts the estimator class or instance fixed
// upstream, preferring the class. Returns nil when neither is resolved,
// which prunes the branch.
func estimatorFromContext(resolved fixtures.Resolved) any {
	if v, ok := resolved.Lookup(VarEstimatorClass); ok {
		return v
	}
	if v, ok := resolved.Lookup(VarEstimatorInstance); ok {
		return v
	}
	return nil
}

// generateScenario yields the scenarios applicable to the upstream
// estimator, minus policy exclusions.
func (s *Suite) generateScenario(testName string, resolved fixtures.Resolved) ([]any, []string, error) {
	obj := estimatorFromContext(resolved)
	if obj == nil {
		return nil, nil, nil
	}
	var values []any
	var names []string
	for _, scen := range s.dir.ScenariosFor(obj) {
		if s.policy.ExcludedScenario(testName, scen) {
			continue
		}
		values = append(values, scen)
		names = append(names, scen.Name())
	}
	return values, names, nil
}

// generateMethodNSC yields the non-state-changing methods the upstream
// estimator implements.
func (s *Suite) generateMethodNSC(_ string, resolved fixtures.Resolved) ([]any, []string, error) {
	return s.methodsFor(resolved, registry.NonStateChangingMethods)
}

// generateMethodNSCArraylike restricts generateMethodNSC to methods with
// array-like output.
func (s *Suite) generateMethodNSCArraylike(_ string, resolved fixtures.Resolved) ([]any, []string, error) {
	return s.methodsFor(resolved, registry.NonStateChangingMethodsArraylike)
}

func (s *Suite) methodsFor(resolved fixtures.Resolved, methods []string) ([]any, []string, error) {
	inst, err := probeInstance(resolved)
	if err != nil {
		return nil, nil, err
	}
	if inst == nil {
		return nil, nil, nil
	}
	var values []any
	var names []string
	for _, m := range methods {
		if registry.HasCapability(inst, m) {
			values = append(values, m)
			names = append(names, m)
		}
	}
	return values, names, nil
}

// probeInstance returns an estimator instance for capability inspection:
// the resolved instance when available, otherwise a throwaway test instance
// of the resolved class.
func probeInstance(resolved fixtures.Resolved) (registry.Estimator, error) {
	if v, ok := resolved.Lookup(VarEstimatorInstance); ok {
		if inst, ok := v.(registry.Estimator); ok {
			return inst, nil
		}
	}
	if v, ok := resolved.Lookup(VarEstimatorClass); ok {
		if entry, ok := v.(*registry.Entry); ok {
			return entry.CreateTestInstance()
		}
	}
	return nil, nil
}
