package registry

// Scenario is a canned sequence of method calls with associated synthetic
// inputs, used to exercise an estimator uniformly. Implementations are
// supplied by the scenario library; the harness only consumes this contract.
type Scenario interface {
	// Name identifies the scenario in display keys.
	Name() string

	// GetTag returns one scenario tag with a default. Known tags:
	// "is_enabled" (progressive rollout gate) and "fh_passed_in_fit"
	// (whether a forecast horizon was supplied at fit time).
	GetTag(name string, def any) any

	// Args returns the canned arguments for one method.
	Args(method string) map[string]any

	// GetArgs returns the arguments for one method, possibly specialized
	// to the estimator under test.
	GetArgs(method string, est Estimator) map[string]any

	// Run executes the method sequence against the estimator.
	Run(est Estimator, args RunArgs) (RunResult, error)
}

// RunArgs controls a scenario execution.
type RunArgs struct {
	// MethodSequence lists the methods to invoke, in order.
	MethodSequence []string

	// ReturnAll requests per-method results instead of only the last.
	ReturnAll bool

	// ReturnArgs requests the post-invocation argument maps, for
	// side-effect checks.
	ReturnArgs bool

	// DeepcopyReturn requests defensively copied results where the
	// scenario implementation supports it.
	DeepcopyReturn bool
}

// RunResult is the outcome of a scenario execution.
type RunResult struct {
	// Values holds one result per invoked method, in sequence order.
	Values []any

	// ArgsAfter holds the argument maps as observed after each
	// invocation, populated when RunArgs.ReturnArgs is set.
	ArgsAfter []map[string]any
}

// Last returns the result of the final method in the sequence.
func (r RunResult) Last() any {
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[len(r.Values)-1]
}

// ScenarioSource retrieves the scenarios applicable to an estimator class or
// instance. It is the harness's view of the scenario library's lookup.
type ScenarioSource func(obj any) []Scenario
