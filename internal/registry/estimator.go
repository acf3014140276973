package registry

import (
	"errors"
	"fmt"
)

// ErrNotFitted is the sentinel returned (wrapped) by estimator methods that
// require a prior fit. Conformance checks assert on it with errors.Is.
var ErrNotFitted = errors.New("estimator has not been fitted")

// Tags is a free-form tag map attached to estimator classes, instances and
// scenarios. Tag values are plain Go values; callers supply a default for
// absent tags.
type Tags map[string]any

// Get returns the tag value, or def if the tag is absent or nil.
func (t Tags) Get(name string, def any) any {
	if t == nil {
		return def
	}
	if v, ok := t[name]; ok && v != nil {
		return v
	}
	return def
}

// GetBool returns a boolean tag, or def if absent or not a bool.
func (t Tags) GetBool(name string, def bool) bool {
	if v, ok := t.Get(name, def).(bool); ok {
		return v
	}
	return def
}

// GetStrings coerces a tag to a string slice. Absent tags return nil; a
// single string becomes a one-element slice.
func (t Tags) GetStrings(name string) []string {
	switch v := t.Get(name, nil).(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Estimator is the shared object contract every pluggable implementation
// obeys: parameter introspection, cloning, fitted-state reporting, tags.
// Fitting, prediction and transformation are optional capabilities declared
// through the narrower interfaces below.
type Estimator interface {
	// ClassName returns the registered class name of the implementation.
	ClassName() string

	// GetParams returns the current hyper-parameters.
	GetParams() map[string]any

	// SetParams overwrites hyper-parameters and returns an error for
	// unknown parameter names.
	SetParams(params map[string]any) error

	// Clone returns an unfitted copy with identical hyper-parameters.
	// State mutated on the receiver must not be visible on the clone.
	Clone() Estimator

	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool

	// GetTags returns the instance tags.
	GetTags() Tags

	// GetTag returns one instance tag with a default.
	GetTag(name string, def any) any
}

// Optional capability interfaces. A method is "non-state-changing" when it
// is contractually guaranteed not to mutate estimator internals.

// Fitter is implemented by estimators with a fitting step.
type Fitter interface {
	Fit(args map[string]any) error
}

// Predictor produces point predictions. Non-state-changing.
type Predictor interface {
	Predict(args map[string]any) (any, error)
}

// IntervalPredictor produces interval predictions. Non-state-changing.
type IntervalPredictor interface {
	PredictInterval(args map[string]any) (any, error)
}

// VariancePredictor produces variance predictions. Non-state-changing.
type VariancePredictor interface {
	PredictVar(args map[string]any) (any, error)
}

// Transformer applies a fitted transformation. Non-state-changing.
type Transformer interface {
	Transform(args map[string]any) (any, error)
}

// FittedParamsGetter exposes fitted parameters. Non-state-changing.
type FittedParamsGetter interface {
	GetFittedParams() (map[string]any, error)
}

// Saver is implemented by estimators supporting serialization. An empty
// path returns an in-memory handle; a non-empty path writes to disk and
// returns the same handle bytes. Deserialization is supplied by the
// estimator library through Directory.SetLoader.
type Saver interface {
	Save(path string) ([]byte, error)
}

// NonStateChangingMethods is the complete list of "predict"-like methods
// the harness exercises. Each estimator contributes the subset it actually
// implements, determined by HasCapability.
var NonStateChangingMethods = []string{
	"predict",
	"predict_interval",
	"predict_var",
	"transform",
	"get_fitted_params",
}

// NonStateChangingMethodsArraylike is the subset of NonStateChangingMethods
// whose output is array-like and therefore comparable across runs.
var NonStateChangingMethodsArraylike = []string{
	"predict",
	"predict_interval",
	"predict_var",
	"transform",
}

// HasCapability reports whether the estimator implements the named method.
func HasCapability(est Estimator, method string) bool {
	switch method {
	case "fit":
		_, ok := est.(Fitter)
		return ok
	case "predict":
		_, ok := est.(Predictor)
		return ok
	case "predict_interval":
		_, ok := est.(IntervalPredictor)
		return ok
	case "predict_var":
		_, ok := est.(VariancePredictor)
		return ok
	case "transform":
		_, ok := est.(Transformer)
		return ok
	case "get_fitted_params":
		_, ok := est.(FittedParamsGetter)
		return ok
	}
	return false
}

// Invoke dispatches a method call by name. For "fit" the estimator itself is
// returned as the result, matching the fit-returns-self convention of the
// object contract. Unknown or unimplemented methods return an error.
func Invoke(est Estimator, method string, args map[string]any) (any, error) {
	switch method {
	case "fit":
		f, ok := est.(Fitter)
		if !ok {
			return nil, fmt.Errorf("estimator %s does not implement fit", est.ClassName())
		}
		if err := f.Fit(args); err != nil {
			return nil, err
		}
		return est, nil
	case "predict":
		if p, ok := est.(Predictor); ok {
			return p.Predict(args)
		}
	case "predict_interval":
		if p, ok := est.(IntervalPredictor); ok {
			return p.PredictInterval(args)
		}
	case "predict_var":
		if p, ok := est.(VariancePredictor); ok {
			return p.PredictVar(args)
		}
	case "transform":
		if tr, ok := est.(Transformer); ok {
			return tr.Transform(args)
		}
	case "get_fitted_params":
		if g, ok := est.(FittedParamsGetter); ok {
			return g.GetFittedParams()
		}
	default:
		return nil, fmt.Errorf("unknown estimator method %q", method)
	}
	return nil, fmt.Errorf("estimator %s does not implement %s", est.ClassName(), method)
}
