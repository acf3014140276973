package registry

import "fmt"

// Entry is the class handle for one registered estimator implementation:
// construction metadata, class tags, and the declared test parameter sets.
type Entry struct {
	// Name is the unique class name, used in display keys and denylists.
	Name string

	// Scitype is the semantic category ("forecaster", "classifier",
	// "transformer", ...) driving which base contract applies.
	Scitype string

	// ClassTags are the static tags of the class.
	ClassTags Tags

	// ParamNames lists the valid hyper-parameter names.
	ParamNames []string

	// ParamDefaults maps parameter names to their default values.
	ParamDefaults map[string]any

	// TestParams holds the declared test parameter sets. Each set maps a
	// subset of ParamNames to non-default values.
	TestParams []map[string]any

	// New constructs an instance with the given parameters overlaid on
	// defaults. A nil map constructs with all defaults.
	New func(params map[string]any) (Estimator, error)
}

// GetClassTag returns one class tag with a default.
func (e *Entry) GetClassTag(name string, def any) any {
	return e.ClassTags.Get(name, def)
}

// GetTestParams returns the declared test parameter sets. Entries without
// declared sets get one empty set so a default instance is always testable.
func (e *Entry) GetTestParams() []map[string]any {
	if len(e.TestParams) == 0 {
		return []map[string]any{{}}
	}
	return e.TestParams
}

// CreateTestInstance constructs one instance from the first test parameter
// set.
func (e *Entry) CreateTestInstance() (Estimator, error) {
	if e.New == nil {
		return nil, fmt.Errorf("estimator %s has no constructor", e.Name)
	}
	return e.New(e.GetTestParams()[0])
}

// TestInstances constructs one instance per declared test parameter set,
// with display names. A single parameter set yields the bare class name;
// multiple sets yield "Name-0", "Name-1", ... so display keys stay unique.
func (e *Entry) TestInstances() ([]Estimator, []string, error) {
	params := e.GetTestParams()
	instances := make([]Estimator, 0, len(params))
	names := make([]string, 0, len(params))
	for i, p := range params {
		inst, err := e.New(p)
		if err != nil {
			return nil, nil, fmt.Errorf("estimator %s, test parameter set %d: %w", e.Name, i, err)
		}
		instances = append(instances, inst)
		if len(params) == 1 {
			names = append(names, e.Name)
		} else {
			names = append(names, fmt.Sprintf("%s-%d", e.Name, i))
		}
	}
	return instances, names, nil
}
