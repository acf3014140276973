package testutil

import (
	"fmt"

	"github.com/modelproof/estcheck/internal/registry"
)

// CannedScenario is a reference registry.Scenario: a fixed table of method
// arguments executed via registry.Invoke. Arguments handed to estimators are
// always defensive copies, so the originals stay comparable for side-effect
// checks.
type CannedScenario struct {
	ScenarioName string
	Tags         registry.Tags
	MethodArgs   map[string]map[string]any
}

func (s *CannedScenario) Name() string { return s.ScenarioName }

func (s *CannedScenario) GetTag(name string, def any) any {
	return s.Tags.Get(name, def)
}

func (s *CannedScenario) Args(method string) map[string]any {
	return s.MethodArgs[method]
}

// GetArgs returns the canned arguments for a method. The reference
// implementation does not specialize per estimator.
func (s *CannedScenario) GetArgs(method string, _ registry.Estimator) map[string]any {
	return s.Args(method)
}

// Run invokes the method sequence against the estimator, collecting one
// result per method. With ReturnArgs set, the argument maps as observed
// after each call are returned for mutation checks.
func (s *CannedScenario) Run(est registry.Estimator, args registry.RunArgs) (registry.RunResult, error) {
	var result registry.RunResult
	for _, method := range args.MethodSequence {
		callArgs := CopyArgs(s.GetArgs(method, est))
		value, err := registry.Invoke(est, method, callArgs)
		if err != nil {
			return registry.RunResult{}, fmt.Errorf("scenario %s, method %s: %w", s.ScenarioName, method, err)
		}
		if args.DeepcopyReturn {
			value = copyValue(value)
		}
		result.Values = append(result.Values, value)
		if args.ReturnArgs {
			result.ArgsAfter = append(result.ArgsAfter, callArgs)
		}
	}
	if !args.ReturnAll && len(result.Values) > 1 {
		result.Values = result.Values[len(result.Values)-1:]
	}
	return result, nil
}

// CopyArgs deep-copies an argument map, including the slice types the
// reference scenarios use.
func CopyArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case []float64:
		return append([]float64(nil), val...)
	case []int:
		return append([]int(nil), val...)
	case [][2]float64:
		return append([][2]float64(nil), val...)
	case map[string]any:
		return CopyArgs(val)
	}
	return v
}

// ForecasterScenarios returns the canned scenarios applicable to the
// reference forecasters. Both are enabled; the second passes the horizon
// late, which certain state-mutation checks must exclude.
func ForecasterScenarios() []registry.Scenario {
	y := []float64{1, 2, 3, 4, 5}
	return []registry.Scenario{
		&CannedScenario{
			ScenarioName: "UnivariateFhInFit",
			Tags:         registry.Tags{"is_enabled": true, "fh_passed_in_fit": true},
			MethodArgs: map[string]map[string]any{
				"fit":               {"y": y, "fh": []int{1, 2}},
				"predict":           {},
				"predict_interval":  {},
				"predict_var":       {},
				"transform":         {},
				"get_fitted_params": {},
			},
		},
		&CannedScenario{
			ScenarioName: "UnivariateFhInPredict",
			Tags:         registry.Tags{"is_enabled": true, "fh_passed_in_fit": false},
			MethodArgs: map[string]map[string]any{
				"fit":               {"y": y},
				"predict":           {"fh": []int{1, 2}},
				"predict_interval":  {"fh": []int{1, 2}},
				"predict_var":       {"fh": []int{1, 2}},
				"transform":         {},
				"get_fitted_params": {},
			},
		},
	}
}

// NewDemoDirectory builds the directory the estcheck binary and the harness
// tests run against: the conforming reference forecaster plus the broken
// variants, with scenario source and loader installed.
func NewDemoDirectory() *registry.Directory {
	dir := registry.NewDirectory()

	dir.MustRegister(&registry.Entry{
		Name:          "NaiveForecaster",
		Scitype:       "forecaster",
		ParamNames:    []string{"strategy", "window"},
		ParamDefaults: map[string]any{"strategy": "last", "window": 1},
		TestParams: []map[string]any{
			{"strategy": "mean"},
			{"strategy": "last", "window": 3},
		},
		New: func(params map[string]any) (registry.Estimator, error) {
			return NewNaiveForecaster(params)
		},
	})

	dir.MustRegister(&registry.Entry{
		Name:          "LeakyForecaster",
		Scitype:       "forecaster",
		ClassTags:     registry.Tags{"tests:skip_all": true},
		ParamNames:    []string{"strategy", "window"},
		ParamDefaults: map[string]any{"strategy": "last", "window": 1},
		New: func(params map[string]any) (registry.Estimator, error) {
			return NewLeakyForecaster(params)
		},
	})

	dir.MustRegister(&registry.Entry{
		Name:          "ManglingForecaster",
		Scitype:       "forecaster",
		ClassTags:     registry.Tags{"tests:skip_all": true},
		ParamNames:    []string{"strategy", "window"},
		ParamDefaults: map[string]any{"strategy": "last", "window": 1},
		New: func(params map[string]any) (registry.Estimator, error) {
			return NewManglingForecaster(params)
		},
	})

	dir.SetScenarioSource(func(obj any) []registry.Scenario {
		switch o := obj.(type) {
		case *registry.Entry:
			if o.Scitype == "forecaster" {
				return ForecasterScenarios()
			}
		case registry.Estimator:
			return ForecasterScenarios()
		}
		return nil
	})
	dir.SetLoader(Load)

	return dir
}
